package template_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmpl "github.com/stackvity/stack-polyglot/pkg/polyglot/template"
)

type summary struct {
	Registry          string
	RegistryVersion   string
	InputPath         string
	TotalFilesScanned int
	DetectedCount     int
	UnknownCount      int
	SkippedCount      int
	ErrorCount        int
	CachedCount       int
	CacheEnabled      bool
	DurationSeconds   float64
	Languages         map[string]int
	Methods           map[string]int
}

type file struct{ Path, Language, Method string }

type failure struct{ Path, Error string }

type report struct {
	Summary summary
	Files   []file
	Errors  []failure
}

func TestSortedCounts(t *testing.T) {
	got := tmpl.SortedCounts(map[string]int{"Go": 3, "C": 3, "Python": 5})
	assert.Equal(t, []tmpl.Count{{Name: "Python", Count: 5}, {Name: "C", Count: 3}, {Name: "Go", Count: 3}}, got)
	assert.Empty(t, tmpl.SortedCounts(nil))
}

func TestDefaultTemplate(t *testing.T) {
	r := report{
		Summary: summary{
			Registry: "builtin", RegistryVersion: "2026.10", InputPath: "/src",
			TotalFilesScanned: 3, DetectedCount: 2, UnknownCount: 1,
			CacheEnabled: true, CachedCount: 1, DurationSeconds: 0.5,
			Languages: map[string]int{"Go": 1, "Python": 1},
			Methods:   map[string]int{"Extension": 1, "Shebang": 1, "Unknown": 1},
		},
		Files: []file{
			{Path: "main.go", Language: "Go", Method: "Extension"},
			{Path: "bin/tool", Language: "Python", Method: "Shebang"},
			{Path: "blob", Method: "Unknown"},
		},
		Errors: []failure{{Path: "locked.txt", Error: "permission denied"}},
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, nil, r))
	out := buf.String()

	assert.Contains(t, out, "stack-polyglot report (builtin 2026.10)")
	assert.Contains(t, out, "3 scanned, 2 detected, 1 unknown")
	assert.Contains(t, out, "cache:    1 hits")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "Shebang")
	assert.Regexp(t, `blob\s+-\s+Unknown`, out)
	assert.Contains(t, out, "locked.txt: permission denied")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "custom.tmpl")
	require.NoError(t, os.WriteFile(good, []byte(`{{ range .Files }}{{ .Path }}={{ .Language }};{{ end }}{{ formatDate .When "2006" }}`), 0o644))

	parsed, err := tmpl.LoadFile(good)
	require.NoError(t, err)
	var buf bytes.Buffer
	data := struct {
		Files []file
		When  time.Time
	}{Files: []file{{Path: "a.go", Language: "Go"}}, When: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, tmpl.Execute(&buf, parsed, data))
	assert.Equal(t, "a.go=Go;2026", buf.String())

	bad := filepath.Join(dir, "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte(`{{ .Files `), 0o644))
	_, err = tmpl.LoadFile(bad)
	assert.Error(t, err)

	_, err = tmpl.LoadFile(filepath.Join(dir, "missing.tmpl"))
	assert.Error(t, err)
}

func TestExecuteError(t *testing.T) {
	parsed, err := tmpl.LoadDefault()
	require.NoError(t, err)
	err = tmpl.Execute(&bytes.Buffer{}, parsed, 42)
	assert.ErrorContains(t, err, "template execution failed")
}
