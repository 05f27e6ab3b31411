package registry_test

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

func withModels(t *testing.T, r *registry.Registry) *registry.Registry {
	t.Helper()
	tr := classifier.NewTrainer()
	tr.Add("C", []byte("int main(void) { return 0; }"))
	tr.Add("Python", []byte("def main():\n    return 0\n"))
	derived, err := r.WithModels(tr.Models())
	require.NoError(t, err)
	return derived
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := withModels(t, loadMini(t))

	for _, name := range []string{"reg.gob", "reg.snapshot.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, original.Compile(path))
			require.True(t, registry.IsSnapshotPath(path))

			loaded, err := registry.Load(path, registry.CasePolicy{})
			require.NoError(t, err)

			assert.Equal(t, original.Version(), loaded.Version())
			assert.Equal(t, original.Languages().Names(), loaded.Languages().Names())
			assert.Equal(t, original.LookupByExtension("x.h").Names(), loaded.LookupByExtension("x.h").Names())
			assert.True(t, loaded.IsAmbiguousExtension(".txt"))

			origRules := original.RulesFor(".h", original.Languages())
			loadedRules := loaded.RulesFor(".h", loaded.Languages())
			require.Len(t, loadedRules, len(origRules))
			for i := range origRules {
				assert.Equal(t, origRules[i].Languages, loadedRules[i].Languages)
				for _, sample := range []string{"class A {};", "int x;", "def f():"} {
					assert.Equal(t, origRules[i].Matcher.Match([]byte(sample)), loadedRules[i].Matcher.Match([]byte(sample)))
				}
			}

			require.NotNil(t, loaded.ModelFor("C"))
			assert.Equal(t, original.ModelFor("C").TokenLogProb, loaded.ModelFor("C").TokenLogProb)
			assert.InDelta(t, original.ModelFor("python").LogPrior, loaded.ModelFor("Python").LogPrior, 1e-12)
			assert.Nil(t, loaded.ModelFor("Text"))
		})
	}
}

func TestSnapshotSchemaMismatch(t *testing.T) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	require.NoError(t, enc.Encode(registry.SnapshotHeader{SchemaVersion: "0"}))
	require.NoError(t, enc.Encode(registry.Document{Version: "x", Languages: []registry.LanguageDoc{{Name: "A"}}}))

	_, err := registry.ReadSnapshot("mem", &buf, registry.SnapshotGob, registry.CasePolicy{})
	require.ErrorIs(t, err, registry.ErrRegistryLoad)
	assert.Contains(t, err.Error(), "schema version")
}

func TestSnapshotGarbage(t *testing.T) {
	_, err := registry.ReadSnapshot("mem", bytes.NewBufferString("not a snapshot"), registry.SnapshotGob, registry.CasePolicy{})
	assert.ErrorIs(t, err, registry.ErrRegistryLoad)
}

func TestWithOverrides(t *testing.T) {
	base := loadMini(t)
	baseFingerprint := base.Fingerprint()

	derived, err := base.WithOverrides(map[string]string{"h": "cpp", ".txt": "Python", ".tpl": "Text"})
	require.NoError(t, err)

	assert.Equal(t, []string{"C++"}, derived.LookupByExtension("a.h").Names())
	assert.Equal(t, []string{"Python"}, derived.LookupByExtension("a.TXT").Names())
	assert.Equal(t, []string{"Text"}, derived.LookupByExtension("page.tpl").Names())
	assert.False(t, derived.IsAmbiguousExtension(".txt"), "an explicit mapping is not a weak hint")
	assert.NotEqual(t, baseFingerprint, derived.Fingerprint())

	assert.Equal(t, []string{"C", "C++"}, base.LookupByExtension("a.h").Names(), "the original registry is unchanged")
	assert.True(t, base.IsAmbiguousExtension(".txt"))
	assert.Equal(t, baseFingerprint, base.Fingerprint())

	same, err := base.WithOverrides(nil)
	require.NoError(t, err)
	assert.Same(t, base, same)
}

func TestWithOverridesUnknownLanguage(t *testing.T) {
	_, err := loadMini(t).WithOverrides(map[string]string{".py": "Pythn"})
	require.ErrorIs(t, err, registry.ErrUnknownLanguage)
	assert.Contains(t, err.Error(), `did you mean "Python"`)

	_, err = loadMini(t).WithOverrides(map[string]string{" ": "Python"})
	assert.ErrorIs(t, err, registry.ErrUnknownLanguage)
}

func TestWithModelsChangesFingerprint(t *testing.T) {
	base := loadMini(t)
	trained := withModels(t, base)
	assert.NotEqual(t, base.Fingerprint(), trained.Fingerprint())
	assert.Equal(t, trained.Fingerprint(), withModels(t, base).Fingerprint())

	tr := classifier.NewTrainer()
	tr.Add("C", []byte("#include <stdio.h>\nint main(void) { puts(\"hi\"); }"))
	tr.Add("Python", []byte("def main():\n    return 0\n"))
	retrained, err := base.WithModels(tr.Models())
	require.NoError(t, err)
	assert.NotEqual(t, trained.Fingerprint(), retrained.Fingerprint())
}

func TestWithModelsLeavesCallerModelsAlone(t *testing.T) {
	model := &classifier.Model{LogPrior: -0.5, DefaultLogProb: -9, TokenLogProb: map[string]float64{"def": -1}}

	derived, err := loadMini(t).WithModels(map[string]*classifier.Model{"python": model})
	require.NoError(t, err)

	attached := derived.ModelFor("Python")
	require.NotNil(t, attached)
	assert.Equal(t, "Python", attached.Language)
	assert.NotSame(t, model, attached)
	assert.Empty(t, model.Language, "the caller's model is not renamed")
}

func TestBuiltinRegistry(t *testing.T) {
	r, err := registry.Default()
	require.NoError(t, err)
	again, err := registry.Default()
	require.NoError(t, err)
	assert.Same(t, r, again, "the default registry is built once")

	assert.Equal(t, registry.SourceBuiltin, r.Source())
	assert.Equal(t, []string{"Dockerfile"}, r.LookupByName("Dockerfile").Names())
	assert.Equal(t, []string{"C", "C++", "Objective-C"}, r.LookupByExtension("x.h").Names())
	assert.Equal(t, []string{"Python"}, r.LookupByInterpreter("python3").Names())
	assert.True(t, r.IsAmbiguousExtension(".txt"))

	for _, name := range []string{"C", "C++", "Go", "Python", "Objective-C", "Common Lisp", "Text"} {
		assert.NotNil(t, r.ModelFor(name), "builtin model for %s", name)
	}
	assert.Nil(t, r.ModelFor("Dockerfile"), "no samples, no model")

	doc, err := r.Document()
	require.NoError(t, err)
	assert.Contains(t, doc.Models, "Go")
}

func TestLinguistRegistry(t *testing.T) {
	r, err := registry.Load(registry.SourceLinguist, registry.CasePolicy{})
	require.NoError(t, err)

	assert.Equal(t, registry.SourceLinguist, r.Source())
	assert.True(t, r.LookupByExtension("main.go").Contains("Go"))
	assert.True(t, r.LookupByInterpreter("python3").Contains("Python"))
	assert.Greater(t, len(r.LookupByExtension("x.h")), 1)
	assert.NotEmpty(t, r.RulesFor(".h", r.LookupByExtension("x.h")))
	assert.NotNil(t, r.ModelFor("Go"))

	_, err = r.Document()
	assert.ErrorIs(t, err, registry.ErrSnapshotUnsupported)
	assert.ErrorIs(t, r.Compile(filepath.Join(t.TempDir(), "x.gob")), registry.ErrSnapshotUnsupported)
}
