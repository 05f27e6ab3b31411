package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/rule"
)

// FromDocument compiles a parsed document into a Registry.
func FromDocument(source string, doc *Document, policy CasePolicy) (*Registry, error) {
	if doc == nil || len(doc.Languages) == 0 {
		return nil, loadErr(source, nil, "registry defines no languages")
	}
	r := newRegistry(source, doc.Version, policy)
	r.doc = doc

	aliasOwner := make(map[string]string)
	for i, ld := range doc.Languages {
		name := strings.TrimSpace(ld.Name)
		if name == "" {
			return nil, loadErr(source, nil, "language #%d has no name", i+1)
		}
		key := strings.ToLower(name)
		if owner, ok := aliasOwner[key]; ok {
			return nil, loadErr(source, nil, "duplicate language name %q (already used by %q)", name, owner)
		}
		aliasOwner[key] = name
		for _, alias := range ld.Aliases {
			akey := strings.ToLower(alias)
			if owner, ok := aliasOwner[akey]; ok && owner != name {
				return nil, loadErr(source, nil, "alias %q of %q is already used by %q", alias, name, owner)
			}
			aliasOwner[akey] = name
		}
		typ := LanguageType(ld.Type)
		if typ == "" {
			typ = TypeProgramming
		}
		r.addLanguage(&LanguageDefinition{
			Name:         name,
			Type:         typ,
			Aliases:      append([]string(nil), ld.Aliases...),
			Extensions:   append([]string(nil), ld.Extensions...),
			Filenames:    append([]string(nil), ld.Filenames...),
			Interpreters: append([]string(nil), ld.Interpreters...),
		})
	}

	for _, ext := range doc.AmbiguousExtensions {
		key := r.extensionKey(ext)
		if _, ok := r.extensions[key]; !ok {
			return nil, loadErr(source, nil, "ambiguous extension %q is not registered by any language", ext)
		}
		r.ambiguous[key] = struct{}{}
	}

	named := make(map[string]rule.Matcher, len(doc.NamedPatterns))
	for name, exprs := range doc.NamedPatterns {
		m, err := compilePatterns(exprs)
		if err != nil {
			return nil, loadErr(source, err, "named pattern %q", name)
		}
		named[name] = m
	}

	for i, dd := range doc.Disambiguations {
		d := Disambiguation{Extensions: dd.Extensions}
		for _, lang := range dd.Languages {
			canonical, err := r.resolve(source, lang)
			if err != nil {
				return nil, err
			}
			d.Languages = append(d.Languages, canonical)
		}
		for j, rd := range dd.Rules {
			if len(rd.Language) == 0 {
				return nil, loadErr(source, nil, "disambiguation #%d rule #%d names no language", i+1, j+1)
			}
			hr := HeuristicRule{}
			for _, lang := range rd.Language {
				canonical, err := r.resolve(source, lang)
				if err != nil {
					return nil, err
				}
				hr.Languages = append(hr.Languages, canonical)
			}
			m, err := compileRule(rd, named)
			if err != nil {
				return nil, loadErr(source, err, "disambiguation #%d rule #%d", i+1, j+1)
			}
			hr.Matcher = m
			d.Rules = append(d.Rules, hr)
		}
		idx := len(r.disambiguations)
		r.disambiguations = append(r.disambiguations, d)
		for _, ext := range dd.Extensions {
			key := r.extensionKey(ext)
			r.extRules[key] = append(r.extRules[key], idx)
		}
	}

	if err := r.attachModels(source, doc.Models); err != nil {
		return nil, err
	}
	return r, nil
}

// resolve maps a name or alias to its canonical name, failing with a
// suggestion when nothing matches.
func (r *Registry) resolve(source, name string) (string, error) {
	if d, ok := r.Language(name); ok {
		return d.Name, nil
	}
	if s := r.Suggest(name); s != "" {
		return "", loadErr(source, ErrUnknownLanguage, "heuristic references %q (did you mean %q?)", name, s)
	}
	return "", loadErr(source, ErrUnknownLanguage, "heuristic references %q", name)
}

// attachModels assigns trained models before the registry is published.
func (r *Registry) attachModels(source string, models map[string]*classifier.Model) error {
	for name, m := range models {
		if m == nil {
			continue
		}
		d, ok := r.Language(name)
		if !ok {
			return loadErr(source, ErrUnknownLanguage, "model for %q", name)
		}
		cp := *m
		if cp.Language == "" {
			cp.Language = d.Name
		}
		d.Model = &cp
	}
	return r.computeDigest(source)
}

// computeDigest hashes the compiled document and the attached models so an
// edited rule or a retrained model changes the fingerprint.
func (r *Registry) computeDigest(source string) error {
	content := struct {
		Document *Document                   `json:"document,omitempty"`
		Models   map[string]*classifier.Model `json:"models,omitempty"`
	}{Models: make(map[string]*classifier.Model)}
	if r.doc != nil {
		doc := *r.doc
		doc.Models = nil
		content.Document = &doc
	}
	for _, d := range r.languages {
		if d.Model != nil {
			content.Models[d.Name] = d.Model
		}
	}
	h := xxhash.New()
	if err := json.NewEncoder(h).Encode(content); err != nil {
		return loadErr(source, err, "hashing registry contents")
	}
	r.digest = h.Sum64()
	return nil
}

// compileRule combines every condition of a rule with AND. Patterns listed
// under one key are alternatives.
func compileRule(rd RuleDoc, named map[string]rule.Matcher) (rule.Matcher, error) {
	var parts rule.And
	if len(rd.Pattern) > 0 {
		m, err := compilePatterns(rd.Pattern)
		if err != nil {
			return nil, err
		}
		parts = append(parts, m)
	}
	if len(rd.NegativePattern) > 0 {
		m, err := compilePatterns(rd.NegativePattern)
		if err != nil {
			return nil, err
		}
		parts = append(parts, rule.NegativePattern{Inner: m})
	}
	if rd.NamedPattern != "" {
		m, ok := named[rd.NamedPattern]
		if !ok {
			return nil, fmt.Errorf("unknown named pattern %q", rd.NamedPattern)
		}
		parts = append(parts, m)
	}
	for _, sub := range rd.And {
		m, err := compileRule(sub, named)
		if err != nil {
			return nil, err
		}
		parts = append(parts, m)
	}
	switch len(parts) {
	case 0:
		return rule.Always{}, nil
	case 1:
		return parts[0], nil
	}
	return parts, nil
}

func compilePatterns(exprs []string) (rule.Matcher, error) {
	if len(exprs) == 1 {
		return rule.NewPattern(exprs[0])
	}
	or := make(rule.Or, 0, len(exprs))
	for _, expr := range exprs {
		p, err := rule.NewPattern(expr)
		if err != nil {
			return nil, err
		}
		or = append(or, p)
	}
	return or, nil
}
