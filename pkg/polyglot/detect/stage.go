package detect

import (
	"unicode/utf8"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/encoding"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

// Stage is one step of the detection pipeline.
type Stage int

const (
	StageMatcher Stage = iota
	StageShebang
	StageHeuristic
	StageClassifier
)

// pipeline is the fixed stage order.
var pipeline = [...]Stage{StageMatcher, StageShebang, StageHeuristic, StageClassifier}

func (s Stage) String() string {
	switch s {
	case StageMatcher:
		return "matcher"
	case StageShebang:
		return "shebang"
	case StageHeuristic:
		return "heuristic"
	case StageClassifier:
		return "classifier"
	default:
		return "unknown"
	}
}

// state is what flows between stages for one file.
type state struct {
	filename   string
	content    []byte
	candidates registry.CandidateSet
	ext        string
	ambiguous  bool
	result     Result
	done       bool
}

func (st *state) resolve(lang string, m Method) {
	st.result = Result{Language: lang, Method: m}
	st.done = true
}

func (st *state) stop() {
	st.result = unknown
	st.done = true
}

// step runs one stage, narrowing st.candidates or resolving st. It returns
// false when the stage had nothing to do.
func (d *Detector) step(s Stage, st *state) bool {
	switch s {
	case StageMatcher:
		return d.matchName(st)
	case StageShebang:
		return d.matchShebang(st)
	case StageHeuristic:
		return d.disambiguate(st)
	case StageClassifier:
		return d.classify(st)
	}
	return false
}

func (d *Detector) matchName(st *state) bool {
	res := d.matcher.Match(st.filename)
	st.candidates = res.Candidates
	st.ext = res.Extension
	st.ambiguous = res.Ambiguous

	if def, ok := st.candidates.Only(); ok && !st.ambiguous {
		st.resolve(def.Name, Method(res.Stage))
		return true
	}
	if st.content == nil {
		if def, ok := st.candidates.Only(); ok {
			st.resolve(def.Name, MethodExtension)
		} else {
			st.stop()
		}
	}
	return true
}

func (d *Detector) matchShebang(st *state) bool {
	found := d.shebang.Candidates(st.content)
	if len(found) == 0 {
		return false
	}

	var merged registry.CandidateSet
	switch {
	case st.ambiguous:
		merged = found
		st.ambiguous = false
	case len(st.candidates) == 0:
		merged = found
	default:
		merged = st.candidates.Intersect(found)
		if len(merged) == 0 {
			if d.opts.ShebangPrecedence == ShebangFirst {
				merged = found
			} else {
				merged = st.candidates
			}
		}
	}
	st.candidates = merged

	if def, ok := merged.Only(); ok && found.Contains(def.Name) {
		st.resolve(def.Name, MethodShebang)
	}
	return true
}

func (d *Detector) disambiguate(st *state) bool {
	st.content = truncateUTF8(st.content, d.opts.MaxContentBytes)
	if len(st.candidates) < 2 && !st.ambiguous {
		return false
	}

	narrowed, fired := d.heuristics.Disambiguate(st.ext, st.candidates, st.content, st.ambiguous)
	if fired {
		st.candidates = narrowed
		if def, ok := narrowed.Only(); ok {
			st.resolve(def.Name, MethodHeuristic)
			return true
		}
		st.ambiguous = false
	}
	if def, ok := st.candidates.Only(); ok && st.ambiguous {
		st.resolve(def.Name, MethodExtension)
	}
	return fired || st.done
}

func (d *Detector) classify(st *state) bool {
	if encoding.IsBinary(st.content) {
		st.stop()
		return true
	}
	pool := st.candidates
	if len(pool) == 0 {
		pool = d.reg.Languages()
	}
	defs := make([]*registry.LanguageDefinition, 0, len(pool))
	models := make([]*classifier.Model, 0, len(pool))
	for _, def := range pool {
		if def.Model == nil {
			continue
		}
		defs = append(defs, def)
		models = append(models, def.Model)
	}
	pred, ok := d.classifier.Classify(st.content, models)
	if !ok {
		st.stop()
		return true
	}
	st.resolve(defs[pred.Index].Name, MethodClassifier)
	return true
}

// truncateUTF8 cuts content to at most n bytes without splitting a rune.
func truncateUTF8(content []byte, n int) []byte {
	if n <= 0 || len(content) <= n {
		return content
	}
	cut := n
	for cut > 0 && cut > n-utf8.UTFMax && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
