package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/matcher"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

func TestMatch(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	m := matcher.New(reg)

	testCases := []struct {
		name       string
		filename   string
		candidates []string
		stage      matcher.Stage
		extension  string
		ambiguous  bool
	}{
		{name: "exact filename", filename: "Dockerfile", candidates: []string{"Dockerfile"}, stage: matcher.StageFilename},
		{name: "filename with directory", filename: "build/Makefile", candidates: []string{"Makefile"}, stage: matcher.StageFilename},
		{name: "filename beats extension", filename: "CMakeLists.txt", candidates: []string{"CMake"}, stage: matcher.StageFilename, extension: ".txt"},
		{name: "unique extension", filename: "main.go", candidates: []string{"Go"}, stage: matcher.StageExtension, extension: ".go"},
		{name: "extension case folded", filename: "MAIN.GO", candidates: []string{"Go"}, stage: matcher.StageExtension, extension: ".go"},
		{name: "shared extension", filename: "x.h", candidates: []string{"C", "C++", "Objective-C"}, stage: matcher.StageExtension, extension: ".h"},
		{name: "ambiguous extension", filename: "notes.txt", candidates: []string{"Text"}, stage: matcher.StageExtension, extension: ".txt", ambiguous: true},
		{name: "dotfile by name", filename: ".bashrc", candidates: []string{"Shell"}, stage: matcher.StageFilename},
		{name: "unknown extension", filename: "data.xyz123", stage: matcher.StageNone, extension: ".xyz123"},
		{name: "no extension", filename: "script", stage: matcher.StageNone},
		{name: "empty", filename: "", stage: matcher.StageNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Match(tc.filename)
			if tc.candidates == nil {
				assert.Empty(t, got.Candidates)
			} else {
				assert.Equal(t, tc.candidates, got.Candidates.Names())
			}
			assert.Equal(t, tc.stage, got.Stage)
			assert.Equal(t, tc.extension, got.Extension)
			assert.Equal(t, tc.ambiguous, got.Ambiguous)
		})
	}
}
