// Package detect composes the matcher, shebang, heuristic and classifier
// stages into the language detection pipeline.
package detect

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/heuristics"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/matcher"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/shebang"
)

// Detector runs the detection pipeline against one registry. It is safe for
// concurrent use.
type Detector struct {
	reg        *registry.Registry
	opts       Options
	logger     *slog.Logger
	matcher    *matcher.Matcher
	shebang    *shebang.Parser
	heuristics *heuristics.Disambiguator
	classifier *classifier.Classifier

	// beforeStage runs ahead of every stage when set. Tests use it.
	beforeStage func(s Stage, filename string)
}

// New builds a Detector. A nil registry selects the builtin one.
func New(reg *registry.Registry, opts Options) (*Detector, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if reg == nil {
		if reg, err = registry.Default(); err != nil {
			return nil, err
		}
	}
	handler := opts.Logger
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return &Detector{
		reg:        reg,
		opts:       opts,
		logger:     slog.New(handler).With(slog.String("component", "detect")),
		matcher:    matcher.New(reg),
		shebang:    shebang.New(reg, opts.ShebangMaxLine),
		heuristics: heuristics.New(reg),
		classifier: classifier.New(opts.MaxContentBytes),
	}, nil
}

func (d *Detector) Registry() *registry.Registry { return d.reg }

func (d *Detector) Options() Options { return d.opts }

// Fingerprint identifies the registry and the options that affect results.
// Results cached under one fingerprint stay valid for any detector sharing it.
func (d *Detector) Fingerprint() string {
	return fmt.Sprintf("%s-%s-%d-%d", d.reg.Fingerprint(), d.opts.ShebangPrecedence, d.opts.MaxContentBytes, d.opts.ShebangMaxLine)
}

// Detect returns the language of one file. Content nil means it is not
// available and only the name is used; an empty non-nil slice is an empty
// file. Detect never fails: anything undecided is MethodUnknown.
func (d *Detector) Detect(filename string, content []byte) Result {
	return d.run(filename, content, nil)
}

// StageTrace records the candidate set after one stage ran.
type StageTrace struct {
	Stage      string   `json:"stage"`
	Candidates []string `json:"candidates"`
	Ambiguous  bool     `json:"ambiguous,omitempty"`
	Resolved   bool     `json:"resolved,omitempty"`
}

// Trace is the stage by stage account of one detection.
type Trace struct {
	Filename  string       `json:"filename"`
	Extension string       `json:"extension,omitempty"`
	Stages    []StageTrace `json:"stages"`
	Result    Result       `json:"result"`
}

// Explain runs the same pipeline as Detect and records every stage that did
// work.
func (d *Detector) Explain(filename string, content []byte) Trace {
	tr := &Trace{Filename: filename}
	tr.Result = d.run(filename, content, tr)
	return *tr
}

func (d *Detector) run(filename string, content []byte, tr *Trace) Result {
	st := &state{filename: filename, content: content}
	for _, s := range pipeline {
		if d.beforeStage != nil {
			d.beforeStage(s, filename)
		}
		worked := d.step(s, st)
		if tr != nil {
			if s == StageMatcher {
				tr.Extension = st.ext
			}
			if worked {
				tr.Stages = append(tr.Stages, StageTrace{
					Stage:      s.String(),
					Candidates: st.candidates.Names(),
					Ambiguous:  st.ambiguous,
					Resolved:   st.done,
				})
			}
		}
		if st.done {
			break
		}
	}
	if !st.done {
		st.stop()
	}
	d.logger.Debug("Language detected",
		slog.String("file", filename),
		slog.String("language", st.result.Language),
		slog.String("method", string(st.result.Method)))
	return st.result
}
