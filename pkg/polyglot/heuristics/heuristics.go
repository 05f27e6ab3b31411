// Package heuristics narrows a candidate set by evaluating the registry's
// ordered content rules.
package heuristics

import (
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

// Disambiguator evaluates registry heuristic rules against file content.
type Disambiguator struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Disambiguator {
	return &Disambiguator{reg: reg}
}

// Disambiguate runs the rules applicable to ext and candidates in order. The
// first rule whose predicate matches and whose targets intersect candidates
// wins, and the result is that intersection. When ambiguous is set the
// extension is only a hint: a matching rule's targets replace candidates
// outright. It reports false when no rule fired, returning candidates
// unchanged.
func (d *Disambiguator) Disambiguate(ext string, candidates registry.CandidateSet, content []byte, ambiguous bool) (registry.CandidateSet, bool) {
	if len(candidates) < 2 && !ambiguous {
		return candidates, false
	}
	for _, hr := range d.reg.RulesFor(ext, candidates) {
		targets := d.targets(hr.Languages)
		if len(targets) == 0 {
			continue
		}
		narrowed := targets.Intersect(candidates)
		if len(narrowed) == 0 && !ambiguous {
			continue
		}
		if hr.Matcher == nil || !hr.Matcher.Match(content) {
			continue
		}
		if ambiguous {
			return targets, true
		}
		return narrowed, true
	}
	return candidates, false
}

func (d *Disambiguator) targets(names []string) registry.CandidateSet {
	var out registry.CandidateSet
	for _, name := range names {
		if def, ok := d.reg.Language(name); ok {
			out = append(out, def)
		}
	}
	return out.Union(nil)
}
