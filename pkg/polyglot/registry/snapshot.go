package registry

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
	"github.com/stackvity/stack-polyglot/pkg/util"
)

// SnapshotSchemaVersion changes whenever the snapshot layout changes.
const SnapshotSchemaVersion = "1"

// SnapshotFormat selects the snapshot encoding.
type SnapshotFormat string

const (
	SnapshotGob  SnapshotFormat = "gob"
	SnapshotJSON SnapshotFormat = "json"
)

// SnapshotHeader precedes the document in every snapshot.
type SnapshotHeader struct {
	SchemaVersion   string `json:"schemaVersion"`
	RegistryVersion string `json:"registryVersion"`
	Source          string `json:"source"`
}

type jsonSnapshot struct {
	Header   SnapshotHeader `json:"header"`
	Document *Document      `json:"document"`
}

// IsSnapshotPath reports whether path names a compiled snapshot rather than a
// registry document.
func IsSnapshotPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".gob") || strings.HasSuffix(lower, ".snapshot.json")
}

// SnapshotFormatFromPath picks JSON for ".snapshot.json" paths and gob otherwise.
func SnapshotFormatFromPath(path string) SnapshotFormat {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return SnapshotJSON
	}
	return SnapshotGob
}

// Document returns the serializable form of the registry, including trained
// models. Registries built from go-enry data have no document.
func (r *Registry) Document() (*Document, error) {
	if r.doc == nil {
		return nil, fmt.Errorf("%w: source %s", ErrSnapshotUnsupported, r.source)
	}
	out := *r.doc
	out.Models = make(map[string]*classifier.Model)
	for _, d := range r.languages {
		if d.Model != nil {
			out.Models[d.Name] = d.Model
		}
	}
	if len(out.Models) == 0 {
		out.Models = nil
	}
	return &out, nil
}

// WriteSnapshot encodes the registry to w.
func (r *Registry) WriteSnapshot(w io.Writer, format SnapshotFormat) error {
	doc, err := r.Document()
	if err != nil {
		return err
	}
	header := SnapshotHeader{
		SchemaVersion:   SnapshotSchemaVersion,
		RegistryVersion: r.version,
		Source:          r.source,
	}
	switch format {
	case SnapshotJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonSnapshot{Header: header, Document: doc})
	case SnapshotGob, "":
		enc := gob.NewEncoder(w)
		if err := enc.Encode(header); err != nil {
			return fmt.Errorf("encoding snapshot header: %w", err)
		}
		return enc.Encode(doc)
	}
	return fmt.Errorf("unsupported snapshot format %q", format)
}

// Compile writes the registry as a snapshot file, atomically.
func (r *Registry) Compile(path string) error {
	return util.WriteFileAtomic(path, func(w io.Writer) error {
		return r.WriteSnapshot(w, SnapshotFormatFromPath(path))
	})
}

// ReadSnapshot decodes a snapshot and compiles it. The header schema version
// must match SnapshotSchemaVersion.
func ReadSnapshot(source string, rd io.Reader, format SnapshotFormat, policy CasePolicy) (*Registry, error) {
	var header SnapshotHeader
	var doc Document
	switch format {
	case SnapshotJSON:
		var snap jsonSnapshot
		if err := json.NewDecoder(rd).Decode(&snap); err != nil {
			return nil, loadErr(source, err, "decoding JSON snapshot")
		}
		if snap.Document == nil {
			return nil, loadErr(source, nil, "snapshot has no document")
		}
		header, doc = snap.Header, *snap.Document
	case SnapshotGob, "":
		dec := gob.NewDecoder(rd)
		if err := dec.Decode(&header); err != nil {
			return nil, loadErr(source, err, "decoding snapshot header")
		}
		if err := dec.Decode(&doc); err != nil {
			return nil, loadErr(source, err, "decoding snapshot document")
		}
	default:
		return nil, loadErr(source, nil, "unsupported snapshot format %q", format)
	}
	if header.SchemaVersion != SnapshotSchemaVersion {
		return nil, loadErr(source, nil, "snapshot schema version %q, want %q", header.SchemaVersion, SnapshotSchemaVersion)
	}
	return FromDocument(source, &doc, policy)
}

// LoadSnapshotFile reads a snapshot from disk.
func LoadSnapshotFile(path string, policy CasePolicy) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, loadErr(path, err, "snapshot not found")
		}
		return nil, loadErr(path, err, "opening snapshot")
	}
	defer f.Close()
	return ReadSnapshot(path, f, SnapshotFormatFromPath(path), policy)
}
