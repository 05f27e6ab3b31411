package util_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/stack-polyglot/pkg/util"
)

func TestMatchesIgnorePattern(t *testing.T) {
	testCases := []struct {
		name          string
		pattern       string
		path          string
		expectedMatch bool
	}{
		{name: "Exact file at root", pattern: "file.log", path: "file.log", expectedMatch: true},
		{name: "Unrooted name matches deep", pattern: "*.log", path: "subdir/debug.log", expectedMatch: true},
		{name: "Directory name excludes contents", pattern: "build", path: "build/out/main.o", expectedMatch: true},
		{name: "Trailing slash directory", pattern: "node_modules/", path: "web/node_modules/react/index.js", expectedMatch: true},
		{name: "Rooted file", pattern: "/root.log", path: "root.log", expectedMatch: true},
		{name: "Rooted file does not match deep", pattern: "/root.log", path: "subdir/root.log", expectedMatch: false},
		{name: "Rooted directory contents", pattern: "/build", path: "build/file.txt", expectedMatch: true},
		{name: "Path pattern is anchored", pattern: "target/build", path: "x/target/build", expectedMatch: false},
		{name: "Path pattern match", pattern: "target/build", path: "target/build/a.c", expectedMatch: true},
		{name: "Double star", pattern: "docs/**/*.md", path: "docs/a/b/c.md", expectedMatch: true},
		{name: "No match", pattern: "*.tmp", path: "main.go", expectedMatch: false},
		{name: "Empty pattern", pattern: "", path: "file.txt", expectedMatch: false},
		{name: "Comment line", pattern: "# *.go", path: "main.go", expectedMatch: false},
		{name: "Empty path", pattern: "*", path: "", expectedMatch: false},
		{name: "Dot path", pattern: "*", path: ".", expectedMatch: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedMatch, util.MatchesIgnorePattern(tc.pattern, tc.path))
		})
	}
}

func TestFirstIgnoreMatch(t *testing.T) {
	p, ok := util.FirstIgnoreMatch([]string{"*.tmp", "vendor/", "*.go"}, "vendor/lib/a.go")
	require.True(t, ok)
	assert.Equal(t, "vendor/", p)

	_, ok = util.FirstIgnoreMatch(nil, "a.go")
	assert.False(t, ok)
}

func TestValidateIgnorePatterns(t *testing.T) {
	assert.NoError(t, util.ValidateIgnorePatterns([]string{"*.go", "/build/", "**/x", ""}))
	assert.Error(t, util.ValidateIgnorePatterns([]string{"[unclosed"}))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.bin")

	err := util.WriteFileAtomic(target, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	boom := errors.New("boom")
	err = util.WriteFileAtomic(target, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data), "failed write must leave the previous file intact")

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be removed")
}
