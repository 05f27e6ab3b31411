package registry

import (
	"math"
	"sort"

	"github.com/go-enry/go-enry/v2"
	"github.com/go-enry/go-enry/v2/data"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/rule"
)

const linguistVersion = "go-enry/v2"

// Linguist builds a registry from the GitHub Linguist knowledge base bundled
// with go-enry. Languages are ordered by name. Heuristics are go-enry's
// precompiled rules, so the result cannot be snapshotted.
func Linguist(policy CasePolicy) (*Registry, error) {
	defs := make(map[string]*LanguageDefinition)
	def := func(name string) *LanguageDefinition {
		d, ok := defs[name]
		if !ok {
			d = &LanguageDefinition{Name: name, Type: linguistType(name)}
			defs[name] = d
		}
		return d
	}

	for ext, names := range data.LanguagesByExtension {
		for _, n := range names {
			d := def(n)
			d.Extensions = append(d.Extensions, ext)
		}
	}
	for fn, names := range data.LanguagesByFilename {
		for _, n := range names {
			d := def(n)
			d.Filenames = append(d.Filenames, fn)
		}
	}
	for in, names := range data.LanguagesByInterpreter {
		for _, n := range names {
			d := def(n)
			d.Interpreters = append(d.Interpreters, in)
		}
	}
	for n := range data.LanguagesLogProbabilities {
		def(n)
	}
	for alias, n := range data.LanguageByAliasMap {
		if d, ok := defs[n]; ok && alias != n {
			d.Aliases = append(d.Aliases, alias)
		}
	}
	if len(defs) == 0 {
		return nil, loadErr(SourceLinguist, nil, "go-enry data has no languages")
	}

	names := make([]string, 0, len(defs))
	for n := range defs {
		names = append(names, n)
	}
	sort.Strings(names)

	r := newRegistry(SourceLinguist, linguistVersion, policy)
	for _, n := range names {
		d := defs[n]
		sort.Strings(d.Extensions)
		sort.Strings(d.Filenames)
		sort.Strings(d.Interpreters)
		sort.Strings(d.Aliases)
		r.addLanguage(d)
	}

	r.addLinguistHeuristics()
	r.addLinguistModels()
	return r, nil
}

func (r *Registry) addLinguistHeuristics() {
	exts := make([]string, 0, len(data.ContentHeuristics))
	for ext := range data.ContentHeuristics {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	for _, ext := range exts {
		hs := data.ContentHeuristics[ext]
		if hs == nil {
			continue
		}
		d := Disambiguation{Extensions: []string{ext}}
		for _, h := range *hs {
			var targets []string
			for _, langOrAlias := range h.Languages() {
				name, ok := data.LanguageByAlias(langOrAlias)
				if !ok {
					name = langOrAlias
				}
				if def, ok := r.Language(name); ok {
					targets = append(targets, def.Name)
				}
			}
			if len(targets) == 0 {
				continue
			}
			d.Rules = append(d.Rules, HeuristicRule{Languages: targets, Matcher: rule.Func(h.Match)})
		}
		if len(d.Rules) == 0 {
			continue
		}
		idx := len(r.disambiguations)
		r.disambiguations = append(r.disambiguations, d)
		key := r.extensionKey(ext)
		r.extRules[key] = append(r.extRules[key], idx)
	}
}

// addLinguistModels wraps go-enry's frequency tables. Unseen tokens score
// half the probability of the rarest token seen in any language.
func (r *Registry) addLinguistModels() {
	minLogProb := 0.0
	for _, tokens := range data.TokensLogProbabilities {
		for _, p := range tokens {
			if p < minLogProb {
				minLogProb = p
			}
		}
	}
	defaultLogProb := minLogProb + math.Log(0.5)

	for name, prior := range data.LanguagesLogProbabilities {
		d, ok := r.Language(name)
		if !ok {
			continue
		}
		d.Model = &classifier.Model{
			Language:       d.Name,
			LogPrior:       prior,
			DefaultLogProb: defaultLogProb,
			TokenLogProb:   data.TokensLogProbabilities[name],
		}
	}
}

func linguistType(name string) LanguageType {
	switch enry.GetLanguageType(name) {
	case enry.Data:
		return TypeData
	case enry.Markup:
		return TypeMarkup
	case enry.Prose:
		return TypeProse
	}
	return TypeProgramming
}
