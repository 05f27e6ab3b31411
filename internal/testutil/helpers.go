package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateDummyFile writes content at path, creating parent directories.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755), "create parent of %s", fullPath)
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644), "write %s", fullPath)
}

// CreateDummyDir ensures a directory exists at path.
func CreateDummyDir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Clean(path), 0o755), "create dir %s", path)
}

// CreateTree lays out a slash-separated path → content map under root. Keys
// ending in "/" create empty directories.
func CreateTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for rel, content := range tree {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			CreateDummyDir(t, full)
			continue
		}
		CreateDummyFile(t, full, content)
	}
}
