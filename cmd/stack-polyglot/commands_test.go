package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/stack-polyglot/internal/testutil"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

func TestRegistryValidate(t *testing.T) {
	stdout, _, err := executeCommand("registry", "validate", miniRegistry)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok (version test-1, 4 languages, 0 trained")

	_, _, err = executeCommand("registry", "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, registry.ErrRegistryLoad)
}

func TestRegistryList(t *testing.T) {
	stdout, _, err := executeCommand("registry", "list", "--registry", miniRegistry)
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "Python")
	assert.Contains(t, stdout, ".cpp .h")
	assert.Less(t, strings.Index(stdout, "C++"), strings.Index(stdout, "Python"), "priority order")

	stdout, _, err = executeCommand("registry", "list", "--registry", miniRegistry, "--type", "prose")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Text")
	assert.NotContains(t, stdout, "Python")
}

func TestRegistryCompile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mini.gob")

	_, _, err := executeCommand("registry", "compile", miniRegistry, "-o", out)
	require.NoError(t, err)

	stdout, _, err := executeCommand("registry", "validate", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok (version test-1, 4 languages")

	_, _, err = executeCommand("registry", "compile", miniRegistry, "-o", filepath.Join(t.TempDir(), "mini.yaml"))
	require.Error(t, err)
}

func TestTrain(t *testing.T) {
	samples := t.TempDir()
	testutil.CreateTree(t, samples, map[string]string{
		"python/hello.py":      "def hello():\n    print('hello')\n",
		"python/nested/lib.py": "import os\nclass Lib:\n    pass\n",
		"klingon/qapla.tlh":    "Qapla'\n",
	})
	out := filepath.Join(t.TempDir(), "trained.snapshot.json")

	_, stderr, err := executeCommand("train", "--registry", miniRegistry, "--samples", samples, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "klingon")

	reg, err := registry.Load(out, registry.DefaultCasePolicy())
	require.NoError(t, err)
	assert.NotNil(t, reg.ModelFor("Python"))
	assert.Nil(t, reg.ModelFor("C"))

	t.Run("no matching samples", func(t *testing.T) {
		empty := t.TempDir()
		testutil.CreateTree(t, empty, map[string]string{"klingon/qapla.tlh": "Qapla'\n"})
		_, _, err := executeCommand("train", "--registry", miniRegistry, "--samples", empty, "-o", out)
		require.Error(t, err)
	})

	t.Run("missing samples dir", func(t *testing.T) {
		_, _, err := executeCommand("train", "--samples", filepath.Join(samples, "nope"), "-o", out)
		require.Error(t, err)
	})
}

func TestDetectOne(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateTree(t, dir, map[string]string{
		"main.go":       "package main\n",
		"bin/run":       "#!/usr/bin/env python3\nprint('x')\n",
		"include/vec.h": "#include <vector>\nclass Vec {\n  std::vector<int> v;\n};\n",
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "extension", args: []string{filepath.Join(dir, "main.go")}, want: ": Go [Extension]\n"},
		{name: "shebang", args: []string{filepath.Join(dir, "bin/run")}, want: ": Python [Shebang]\n"},
		{name: "heuristic", args: []string{filepath.Join(dir, "include/vec.h"), "--registry", miniRegistry}, want: ": C++ [Heuristic]\n"},
		{name: "name only", args: []string{"--name-only", "Dockerfile"}, want: "Dockerfile: Dockerfile [Filename]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeCommand(append([]string{"detect-one"}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, stdout, tt.want)
		})
	}

	t.Run("explain", func(t *testing.T) {
		stdout, _, err := executeCommand("detect-one", "--explain", filepath.Join(dir, "main.go"))
		require.NoError(t, err)
		assert.Contains(t, stdout, "=> Go [Extension]")
		assert.Contains(t, stdout, "matcher")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := executeCommand("detect-one", filepath.Join(dir, "nope.go"))
		require.Error(t, err)
	})
}
