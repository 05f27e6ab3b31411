// Package matcher resolves candidate languages from a file name alone.
package matcher

import (
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

// Stage records which lookup produced a match.
type Stage string

const (
	StageNone      Stage = ""
	StageFilename  Stage = "Filename"
	StageExtension Stage = "Extension"
)

// Result is the outcome of a name-based lookup. Ambiguous is set when the
// matched extension is marked as a weak hint in the registry.
type Result struct {
	Candidates registry.CandidateSet
	Stage      Stage
	Extension  string
	Ambiguous  bool
}

// Matcher looks up languages by exact file name, then by extension. It never
// reads content.
type Matcher struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Matcher {
	return &Matcher{reg: reg}
}

// Match returns the candidates of the first lookup that matches. The
// extension is always reported, even after a filename match, so that later
// stages can key heuristics on it.
func (m *Matcher) Match(filename string) Result {
	if filename == "" {
		return Result{}
	}
	ext, byExt := m.reg.MatchExtension(filename)
	if ext == "" {
		ext = registry.Extension(filename)
	}
	if byName := m.reg.LookupByName(filename); len(byName) > 0 {
		return Result{Candidates: byName, Stage: StageFilename, Extension: ext}
	}
	if len(byExt) > 0 {
		return Result{
			Candidates: byExt,
			Stage:      StageExtension,
			Extension:  ext,
			Ambiguous:  m.reg.IsAmbiguousExtension(ext),
		}
	}
	return Result{Extension: ext}
}
