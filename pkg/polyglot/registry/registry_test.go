package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

func loadMini(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.LoadFile(filepath.Join("testdata", "mini.yaml"), registry.CasePolicy{})
	require.NoError(t, err)
	return r
}

func writeRegistry(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLookups(t *testing.T) {
	r := loadMini(t)

	assert.Equal(t, "test-1", r.Version())
	assert.Equal(t, []string{"C", "C++", "Python", "Text"}, r.Languages().Names())

	assert.Equal(t, []string{"Python"}, r.LookupByName("build/SConstruct").Names())
	assert.Empty(t, r.LookupByName("sconstruct"), "filenames are case-sensitive by default")
	assert.Empty(t, r.LookupByName(""))

	assert.Equal(t, []string{"C", "C++"}, r.LookupByExtension("include/foo.h").Names())
	assert.Equal(t, []string{"C", "C++"}, r.LookupByExtension(`src\FOO.H`).Names(), "extensions are case-insensitive by default")
	assert.Equal(t, []string{"Python"}, r.LookupByExtension("a.b.py").Names())
	assert.Empty(t, r.LookupByExtension("Makefile"))
	assert.Empty(t, r.LookupByExtension(".py"), "a dotfile has no extension")

	assert.Equal(t, []string{"Python"}, r.LookupByInterpreter("python3").Names())
	assert.Empty(t, r.LookupByInterpreter("python"))

	assert.True(t, r.IsAmbiguousExtension(".TXT"))
	assert.False(t, r.IsAmbiguousExtension(".h"))

	d, ok := r.Language("CPP")
	require.True(t, ok)
	assert.Equal(t, "C++", d.Name)
	assert.Equal(t, 1, d.Priority)
	assert.Equal(t, registry.TypeProgramming, d.Type, "type defaults to programming")

	text, ok := r.Language("text")
	require.True(t, ok)
	assert.Equal(t, registry.TypeProse, text.Type)
}

func TestCasePolicy(t *testing.T) {
	r, err := registry.LoadFile(filepath.Join("testdata", "mini.yaml"), registry.CasePolicy{
		Extension: registry.Sensitive,
		Filename:  registry.Insensitive,
	})
	require.NoError(t, err)

	assert.Empty(t, r.LookupByExtension("FOO.H"))
	assert.Equal(t, []string{"Python"}, r.LookupByName("sconstruct").Names())

	c, err := registry.ParseCase(" Sensitive ")
	require.NoError(t, err)
	assert.Equal(t, registry.Sensitive, c)
	_, err = registry.ParseCase("loose")
	assert.Error(t, err)
}

func TestCompoundExtensions(t *testing.T) {
	p := writeRegistry(t, "compound.yaml", `
version: "1"
languages:
  - name: TypeScript
    extensions: [.ts]
  - name: TypeScript Declaration
    extensions: [.d.ts]
`)
	r, err := registry.LoadFile(p, registry.CasePolicy{})
	require.NoError(t, err)

	ext, set := r.MatchExtension("lib/index.d.ts")
	assert.Equal(t, ".d.ts", ext)
	assert.Equal(t, []string{"TypeScript Declaration"}, set.Names())

	ext, set = r.MatchExtension("lib/index.ts")
	assert.Equal(t, ".ts", ext)
	assert.Equal(t, []string{"TypeScript"}, set.Names())
}

func TestExtension(t *testing.T) {
	testCases := map[string]string{
		"main.go":         ".go",
		"dir.v2/Makefile": "",
		".bashrc":         "",
		"archive.tar.gz":  ".gz",
		"trailing.":       "",
		`C:\src\App.CS`:   ".CS",
		"":                "",
	}
	for in, want := range testCases {
		assert.Equal(t, want, registry.Extension(in), in)
	}
}

func TestRulesFor(t *testing.T) {
	r := loadMini(t)
	all := r.Languages()

	rules := r.RulesFor(".h", r.LookupByExtension("x.h"))
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"C++"}, rules[0].Languages, "aliases resolve to canonical names")
	assert.Equal(t, []string{"C"}, rules[1].Languages)
	assert.True(t, rules[0].Matcher.Match([]byte("class Foo {};")))
	assert.True(t, rules[1].Matcher.Match([]byte("anything")), "a rule without conditions always matches")

	groupOnly := r.RulesFor("", all)
	require.Len(t, groupOnly, 1)
	assert.Equal(t, []string{"Python"}, groupOnly[0].Languages)

	both := r.RulesFor(".h", all)
	assert.Len(t, both, 3, "extension rules come first, then group rules")

	assert.Empty(t, r.RulesFor(".py", r.LookupByExtension("x.py")))
}

func TestFormatsAgree(t *testing.T) {
	for _, name := range []string{"mini.yaml", "mini.toml", "mini.json"} {
		t.Run(name, func(t *testing.T) {
			r, err := registry.LoadFile(filepath.Join("testdata", name), registry.CasePolicy{})
			require.NoError(t, err)

			assert.Equal(t, []string{"C", "C++"}, r.LookupByExtension("a.h").Names())
			rules := r.RulesFor(".h", r.LookupByExtension("a.h"))
			require.GreaterOrEqual(t, len(rules), 2)
			assert.Equal(t, []string{"C++"}, rules[0].Languages)
			assert.True(t, rules[0].Matcher.Match([]byte("class Widget")))
			assert.False(t, rules[0].Matcher.Match([]byte("int main(void);")))
		})
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
		reason  string
	}{
		{
			name:    "missing version",
			file:    "r.yaml",
			content: "languages: [{name: C}]",
			reason:  "schema violations",
		},
		{
			name:    "empty languages",
			file:    "r.yaml",
			content: "version: '1'\nlanguages: []",
			reason:  "schema violations",
		},
		{
			name:    "unknown field",
			file:    "r.yaml",
			content: "version: '1'\nlanguages: [{name: C, colour: blue}]",
			reason:  "schema violations",
		},
		{
			name:    "malformed yaml",
			file:    "r.yaml",
			content: "version: '1'\nlanguages: [",
			reason:  "decoding yaml",
		},
		{
			name:    "duplicate names",
			file:    "r.yaml",
			content: "version: '1'\nlanguages: [{name: C}, {name: c}]",
			reason:  "duplicate language name",
		},
		{
			name:    "duplicate alias",
			file:    "r.yaml",
			content: "version: '1'\nlanguages: [{name: C, aliases: [x]}, {name: D, aliases: [x]}]",
			reason:  `alias "x"`,
		},
		{
			name: "unknown heuristic language with suggestion",
			file: "r.yaml",
			content: `
version: '1'
languages: [{name: Python, extensions: [.py]}, {name: C, extensions: [.py]}]
disambiguations:
  - extensions: [.py]
    rules: [{language: Pyton, pattern: 'def'}]
`,
			reason: `did you mean "Python"`,
		},
		{
			name: "invalid regex",
			file: "r.yaml",
			content: `
version: '1'
languages: [{name: A, extensions: [.x]}, {name: B, extensions: [.x]}]
disambiguations:
  - extensions: [.x]
    rules: [{language: A, pattern: '(unclosed'}]
`,
			reason: "rule #1",
		},
		{
			name: "unknown named pattern",
			file: "r.yaml",
			content: `
version: '1'
languages: [{name: A, extensions: [.x]}]
disambiguations:
  - extensions: [.x]
    rules: [{language: A, named_pattern: nope}]
`,
			reason: "rule #1",
		},
		{
			name:    "unregistered ambiguous extension",
			file:    "r.yaml",
			content: "version: '1'\nlanguages: [{name: A, extensions: [.a]}]\nambiguous_extensions: [.b]",
			reason:  "ambiguous extension",
		},
		{
			name:    "unsupported file type",
			file:    "r.ini",
			content: "x=1",
			reason:  "unrecognized registry file extension",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeRegistry(t, tc.file, tc.content)
			_, err := registry.LoadFile(p, registry.CasePolicy{})
			require.Error(t, err)
			assert.ErrorIs(t, err, registry.ErrRegistryLoad)

			var loadErr *registry.LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, p, loadErr.Source)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestUnknownLanguageIsDistinguishable(t *testing.T) {
	p := writeRegistry(t, "r.yaml", `
version: '1'
languages: [{name: A, extensions: [.x]}]
disambiguations:
  - extensions: [.x]
    rules: [{language: Zed}]
`)
	_, err := registry.LoadFile(p, registry.CasePolicy{})
	assert.ErrorIs(t, err, registry.ErrUnknownLanguage)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := registry.Load(filepath.Join(t.TempDir(), "nope.yaml"), registry.CasePolicy{})
	assert.ErrorIs(t, err, registry.ErrRegistryLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCandidateSet(t *testing.T) {
	r := loadMini(t)
	h := r.LookupByExtension("a.h")
	all := r.Languages()

	assert.Equal(t, 2, h.Len())
	assert.True(t, h.Contains("C++"))
	assert.False(t, h.Contains("Python"))
	assert.Equal(t, []string{"C", "C++"}, all.Intersect(h).Names())
	assert.Equal(t, []string{"C", "C++", "Python"}, h.Union(r.LookupByExtension("a.py")).Names(), "union keeps priority order")

	_, ok := h.Only()
	assert.False(t, ok)
	only, ok := r.LookupByExtension("a.py").Only()
	require.True(t, ok)
	assert.Equal(t, "Python", only.Name)
}

func TestSuggest(t *testing.T) {
	r := loadMini(t)
	assert.Equal(t, "Python", r.Suggest("pyhton"))
	assert.Equal(t, "C++", r.Suggest("cp"))
	assert.Equal(t, "", r.Suggest("zzzzzzzzzz"))
	assert.Equal(t, "", r.Suggest(""))
}
