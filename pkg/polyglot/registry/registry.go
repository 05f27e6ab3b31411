// Package registry holds the language knowledge base used by every detection
// stage: names, aliases, extensions, filenames, interpreters, heuristic rules
// and classifier models.
//
// A Registry is immutable once built and safe for concurrent use.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/rule"
)

// LanguageType is the Linguist category of a language.
type LanguageType string

const (
	TypeProgramming LanguageType = "programming"
	TypeMarkup      LanguageType = "markup"
	TypeData        LanguageType = "data"
	TypeProse       LanguageType = "prose"
)

// LanguageDefinition describes one language. Priority is its position in the
// registry order; lower sorts first.
type LanguageDefinition struct {
	Name         string
	Type         LanguageType
	Aliases      []string
	Extensions   []string
	Filenames    []string
	Interpreters []string
	Priority     int
	Model        *classifier.Model
}

// HeuristicRule narrows candidates to Languages when Matcher accepts the content.
type HeuristicRule struct {
	Languages []string
	Matcher   rule.Matcher
}

// Disambiguation is an ordered rule list keyed by extensions, a language
// group, or both.
type Disambiguation struct {
	Extensions []string
	Languages  []string
	Rules      []HeuristicRule
}

// Case selects case handling for a lookup key.
type Case string

const (
	Insensitive Case = "insensitive"
	Sensitive   Case = "sensitive"
)

// CasePolicy controls key normalization for extension and filename lookups.
// Empty fields take the defaults: extensions insensitive, filenames sensitive.
type CasePolicy struct {
	Extension Case
	Filename  Case
}

func DefaultCasePolicy() CasePolicy {
	return CasePolicy{Extension: Insensitive, Filename: Sensitive}
}

// ParseCase accepts "insensitive", "sensitive" or "" (the default).
func ParseCase(s string) (Case, error) {
	switch Case(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case Insensitive:
		return Insensitive, nil
	case Sensitive:
		return Sensitive, nil
	}
	return "", fmt.Errorf("invalid case policy %q (want insensitive or sensitive)", s)
}

func (p CasePolicy) normalized() CasePolicy {
	d := DefaultCasePolicy()
	if p.Extension == "" {
		p.Extension = d.Extension
	}
	if p.Filename == "" {
		p.Filename = d.Filename
	}
	return p
}

// Registry is the compiled, read-only knowledge base.
type Registry struct {
	source  string
	version string
	policy  CasePolicy

	languages    CandidateSet
	byName       map[string]*LanguageDefinition
	extensions   map[string][]*LanguageDefinition
	filenames    map[string][]*LanguageDefinition
	interpreters map[string][]*LanguageDefinition
	ambiguous    map[string]struct{}
	maxExtDots   int

	disambiguations []Disambiguation
	extRules        map[string][]int

	doc       *Document
	digest    uint64
	overrides map[string]string
}

func newRegistry(source, version string, policy CasePolicy) *Registry {
	return &Registry{
		source:       source,
		version:      version,
		policy:       policy.normalized(),
		byName:       make(map[string]*LanguageDefinition),
		extensions:   make(map[string][]*LanguageDefinition),
		filenames:    make(map[string][]*LanguageDefinition),
		interpreters: make(map[string][]*LanguageDefinition),
		ambiguous:    make(map[string]struct{}),
		extRules:     make(map[string][]int),
	}
}

// Source names where the registry came from: builtin, linguist or a path.
func (r *Registry) Source() string { return r.source }

func (r *Registry) Version() string { return r.version }

func (r *Registry) CasePolicy() CasePolicy { return r.policy }

// Fingerprint identifies the registry contents and settings. Cached results
// computed under a different fingerprint are stale.
func (r *Registry) Fingerprint() string {
	var b strings.Builder
	b.WriteString(r.source)
	b.WriteByte(0)
	b.WriteString(r.version)
	b.WriteByte(0)
	b.WriteString(string(r.policy.Extension) + "/" + string(r.policy.Filename))
	fmt.Fprintf(&b, "\x00%016x", r.digest)
	keys := make([]string, 0, len(r.overrides))
	for k := range r.overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\x00" + k + "=" + r.overrides[k])
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// Languages returns every language in priority order.
func (r *Registry) Languages() CandidateSet { return r.languages }

// Language finds a language by canonical name or alias, ignoring case.
func (r *Registry) Language(name string) (*LanguageDefinition, bool) {
	d, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// ModelFor returns the classifier model of a language, or nil.
func (r *Registry) ModelFor(language string) *classifier.Model {
	if d, ok := r.Language(language); ok {
		return d.Model
	}
	return nil
}

// LookupByName matches the base name of filename exactly.
func (r *Registry) LookupByName(filename string) CandidateSet {
	base := baseName(filename)
	if base == "" {
		return nil
	}
	return newCandidateSet(r.filenames[r.filenameKey(base)])
}

// LookupByExtension matches the extension of filename.
func (r *Registry) LookupByExtension(filename string) CandidateSet {
	_, set := r.MatchExtension(filename)
	return set
}

// MatchExtension returns the registered extension of filename and its
// languages. Compound extensions (".d.ts") are tried before the last-dot one.
func (r *Registry) MatchExtension(filename string) (string, CandidateSet) {
	for _, ext := range candidateExtensions(baseName(filename), r.maxExtDots) {
		if defs, ok := r.extensions[r.extensionKey(ext)]; ok {
			return r.extensionKey(ext), newCandidateSet(defs)
		}
	}
	return "", nil
}

// LookupByInterpreter matches an interpreter name such as "python3".
func (r *Registry) LookupByInterpreter(name string) CandidateSet {
	if name == "" {
		return nil
	}
	return newCandidateSet(r.interpreters[name])
}

// IsAmbiguousExtension reports whether ext is marked as a weak signal whose
// single language may be overridden by content.
func (r *Registry) IsAmbiguousExtension(ext string) bool {
	_, ok := r.ambiguous[r.extensionKey(ext)]
	return ok
}

// RulesFor returns the heuristic rules applicable to an extension and a
// candidate set: rules keyed by the extension first, then rules of every
// language group sharing at least two languages with candidates. Order is
// the registry order.
func (r *Registry) RulesFor(ext string, candidates CandidateSet) []HeuristicRule {
	var out []HeuristicRule
	used := make(map[int]struct{})
	if ext != "" {
		for _, i := range r.extRules[r.extensionKey(ext)] {
			used[i] = struct{}{}
			out = append(out, r.disambiguations[i].Rules...)
		}
	}
	for i, d := range r.disambiguations {
		if len(d.Languages) == 0 {
			continue
		}
		if _, ok := used[i]; ok {
			continue
		}
		shared := 0
		for _, name := range d.Languages {
			if candidates.Contains(name) {
				shared++
			}
		}
		if shared >= 2 {
			out = append(out, d.Rules...)
		}
	}
	return out
}

// Disambiguations lists every compiled rule block in registry order.
func (r *Registry) Disambiguations() []Disambiguation { return r.disambiguations }

func (r *Registry) extensionKey(ext string) string {
	if r.policy.Extension == Insensitive {
		return strings.ToLower(ext)
	}
	return ext
}

func (r *Registry) filenameKey(name string) string {
	if r.policy.Filename == Insensitive {
		return strings.ToLower(name)
	}
	return name
}

// Extension returns the last-dot extension of filename's base name, or "".
// Dotfiles such as ".bashrc" have no extension.
func Extension(filename string) string {
	base := baseName(filename)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return base[i:]
}

// candidateExtensions lists the dot suffixes of base, longest first, limited
// to maxDots dots. The leading dot of a dotfile never starts an extension.
func candidateExtensions(base string, maxDots int) []string {
	if maxDots < 1 {
		maxDots = 1
	}
	var out []string
	for i := len(base) - 1; i > 0; i-- {
		if base[i] != '.' || i == len(base)-1 {
			continue
		}
		out = append(out, base[i:])
		if len(out) == maxDots {
			break
		}
	}
	// collected shortest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func baseName(filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		return filename[i+1:]
	}
	return filename
}

func (r *Registry) addLanguage(d *LanguageDefinition) {
	d.Priority = len(r.languages)
	r.languages = append(r.languages, d)
	r.byName[strings.ToLower(d.Name)] = d
	for _, a := range d.Aliases {
		r.byName[strings.ToLower(a)] = d
	}
	for _, ext := range d.Extensions {
		key := r.extensionKey(ext)
		r.extensions[key] = appendUnique(r.extensions[key], d)
		if n := strings.Count(ext, "."); n > r.maxExtDots {
			r.maxExtDots = n
		}
	}
	for _, fn := range d.Filenames {
		key := r.filenameKey(fn)
		r.filenames[key] = appendUnique(r.filenames[key], d)
	}
	for _, in := range d.Interpreters {
		r.interpreters[in] = appendUnique(r.interpreters[in], d)
	}
}

func appendUnique(defs []*LanguageDefinition, d *LanguageDefinition) []*LanguageDefinition {
	for _, existing := range defs {
		if existing == d {
			return defs
		}
	}
	return append(defs, d)
}
