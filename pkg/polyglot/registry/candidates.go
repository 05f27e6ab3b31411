package registry

import "sort"

// CandidateSet is an ordered, de-duplicated set of languages, sorted by
// registry priority.
type CandidateSet []*LanguageDefinition

func newCandidateSet(defs []*LanguageDefinition) CandidateSet {
	if len(defs) == 0 {
		return nil
	}
	out := make(CandidateSet, 0, len(defs))
	seen := make(map[*LanguageDefinition]struct{}, len(defs))
	for _, d := range defs {
		if d == nil {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func (c CandidateSet) Len() int { return len(c) }

// Names returns canonical names in priority order.
func (c CandidateSet) Names() []string {
	names := make([]string, len(c))
	for i, d := range c {
		names[i] = d.Name
	}
	return names
}

func (c CandidateSet) Contains(name string) bool {
	for _, d := range c {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Intersect keeps the members of c that are also in other.
func (c CandidateSet) Intersect(other CandidateSet) CandidateSet {
	var out CandidateSet
	for _, d := range c {
		if other.Contains(d.Name) {
			out = append(out, d)
		}
	}
	return out
}

func (c CandidateSet) Union(other CandidateSet) CandidateSet {
	all := make([]*LanguageDefinition, 0, len(c)+len(other))
	all = append(all, c...)
	all = append(all, other...)
	return newCandidateSet(all)
}

// Only returns the single member of a one-element set.
func (c CandidateSet) Only() (*LanguageDefinition, bool) {
	if len(c) != 1 {
		return nil, false
	}
	return c[0], true
}
