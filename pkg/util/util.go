// Package util holds small helpers shared by the library and the CLI.
package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesIgnorePattern reports whether relPath, relative to the walk root,
// is excluded by a gitignore-style pattern.
//
// A leading "/" roots the pattern at the walk root. A pattern without any
// "/" matches a name at any depth. "**" spans directories. A pattern that
// matches a directory also excludes everything below it.
func MatchesIgnorePattern(pattern, relPath string) bool {
	pattern = strings.TrimSpace(filepath.ToSlash(pattern))
	relPath = strings.TrimPrefix(filepath.ToSlash(relPath), "./")
	if pattern == "" || strings.HasPrefix(pattern, "#") || relPath == "" || relPath == "." {
		return false
	}
	rooted := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, "/"), "/")
	if pattern == "" {
		return false
	}
	if !rooted && !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}
	parts := strings.Split(relPath, "/")
	for i := len(parts); i > 0; i-- {
		if ok, _ := doublestar.Match(pattern, strings.Join(parts[:i], "/")); ok {
			return true
		}
	}
	return false
}

// FirstIgnoreMatch returns the first pattern that excludes relPath.
func FirstIgnoreMatch(patterns []string, relPath string) (string, bool) {
	for _, p := range patterns {
		if MatchesIgnorePattern(p, relPath) {
			return p, true
		}
	}
	return "", false
}

// ValidateIgnorePatterns rejects malformed glob syntax.
func ValidateIgnorePatterns(patterns []string) error {
	for _, p := range patterns {
		clean := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(filepath.ToSlash(p)), "/"), "/")
		if clean == "" {
			continue
		}
		if !doublestar.ValidatePattern(clean) {
			return fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	return nil
}

// WriteFileAtomic writes path through a temporary file in the same directory
// and renames it into place, so readers never observe a partial file.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensuring directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = errors.Join(err, rmErr)
			}
		}
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("writing %q: %w", tmpPath, err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %q to %q: %w", tmpPath, path, err)
	}
	return nil
}
