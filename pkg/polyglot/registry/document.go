package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
)

//go:embed schema.json
var documentSchema string

// Document is the serialized form of a registry, shared by the YAML, JSON and
// TOML sources and by snapshots.
type Document struct {
	Version             string                       `json:"version"`
	Languages           []LanguageDoc                `json:"languages"`
	AmbiguousExtensions []string                     `json:"ambiguous_extensions,omitempty"`
	NamedPatterns       map[string]StringList        `json:"named_patterns,omitempty"`
	Disambiguations     []DisambiguationDoc          `json:"disambiguations,omitempty"`
	Models              map[string]*classifier.Model `json:"models,omitempty"`
}

type LanguageDoc struct {
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	Extensions   []string `json:"extensions,omitempty"`
	Filenames    []string `json:"filenames,omitempty"`
	Interpreters []string `json:"interpreters,omitempty"`
}

type DisambiguationDoc struct {
	Extensions []string  `json:"extensions,omitempty"`
	Languages  []string  `json:"languages,omitempty"`
	Rules      []RuleDoc `json:"rules"`
}

// RuleDoc follows Linguist's heuristics.yml: every condition present must
// hold, and a rule without conditions always matches.
type RuleDoc struct {
	Language        StringList `json:"language,omitempty"`
	Pattern         StringList `json:"pattern,omitempty"`
	NegativePattern StringList `json:"negative_pattern,omitempty"`
	NamedPattern    string     `json:"named_pattern,omitempty"`
	And             []RuleDoc  `json:"and,omitempty"`
}

// StringList decodes from either a single string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// Format is the encoding of a registry document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	case ".toml":
		return FormatTOML, true
	}
	return "", false
}

// ParseDocument decodes data, validates it against the registry schema and
// returns the typed document. source labels errors.
func ParseDocument(source string, data []byte, format Format) (*Document, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, loadErr(source, err, "decoding %s", format)
	}
	if err := validateDocument(source, jsonData); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, loadErr(source, err, "decoding document")
	}
	return &doc, nil
}

// toJSON normalizes every supported format to JSON so that one schema and one
// typed decoder serve all of them.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return data, nil
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return json.Marshal(raw)
	case FormatTOML:
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return json.Marshal(raw)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

func validateDocument(source string, jsonData []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return loadErr(source, err, "schema validation could not run")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return loadErr(source, nil, "schema violations: %s", strings.Join(msgs, "; "))
}
