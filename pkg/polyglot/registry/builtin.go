package registry

import (
	"embed"
	"io/fs"
	"strings"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
)

var (
	//go:embed data/languages.yml
	builtinDocument []byte

	//go:embed data/samples
	builtinSamples embed.FS
)

const builtinSamplesRoot = "data/samples"

// Builtin compiles the embedded registry and trains its classifier models
// from the embedded samples. Prefer Default for the default case policy.
func Builtin(policy CasePolicy) (*Registry, error) {
	doc, err := ParseDocument(SourceBuiltin, builtinDocument, FormatYAML)
	if err != nil {
		return nil, err
	}
	r, err := FromDocument(SourceBuiltin, doc, policy)
	if err != nil {
		return nil, err
	}
	models, skipped, err := Train(r, builtinSamples, builtinSamplesRoot)
	if err != nil {
		return nil, loadErr(SourceBuiltin, err, "training builtin models")
	}
	if len(skipped) > 0 {
		return nil, loadErr(SourceBuiltin, ErrUnknownLanguage, "sample directories %s", strings.Join(skipped, ", "))
	}
	if err := r.attachModels(SourceBuiltin, models); err != nil {
		return nil, err
	}
	return r, nil
}

// Train builds classifier models for r from a samples tree laid out as
// <root>/<language or alias>/<file>. Directory names are resolved through the
// registry, with "-" and "_" also tried as spaces. Directories that name no
// registered language are returned as skipped.
func Train(r *Registry, fsys fs.FS, root string) (map[string]*classifier.Model, []string, error) {
	tr := classifier.NewTrainer()
	spaced := strings.NewReplacer("-", " ", "_", " ")
	skipped, err := tr.AddFS(fsys, root, func(dir string) (string, bool) {
		for _, candidate := range []string{dir, spaced.Replace(dir)} {
			if d, ok := r.Language(candidate); ok {
				return d.Name, true
			}
		}
		return "", false
	})
	if err != nil {
		return nil, skipped, err
	}
	return tr.Models(), skipped, nil
}

// WithModels returns a registry compiled from r's document with models
// replacing any existing ones.
func (r *Registry) WithModels(models map[string]*classifier.Model) (*Registry, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	doc.Models = models
	derived, err := FromDocument(r.source, doc, r.policy)
	if err != nil {
		return nil, err
	}
	if len(r.overrides) > 0 {
		return derived.WithOverrides(r.overrides)
	}
	return derived, nil
}
