package polyglot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/cache"
	"github.com/stackvity/stack-polyglot/pkg/util"
)

// Walker is the filesystem FileSource. It skips symbolic links, ignored
// paths and, optionally, vendored directories.
type Walker struct {
	root         string
	hooks        Hooks
	logger       *slog.Logger
	ignore       *ignoreMatcher
	skipVendored bool
	diffMode     GitDiffMode
	changed      map[string]struct{}
}

// NewWalker prepares a walk of opts.InputPath, loading ignore patterns from
// the options and from the nearest .stackpolyglotignore.
func NewWalker(opts *Options, handler slog.Handler) (*Walker, error) {
	logger := slog.New(handler).With(slog.String("component", "walker"))
	root, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("resolving input path: %w", err)
	}
	ignore, err := newIgnoreMatcher(root, opts.IgnorePatterns, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ignore patterns: %w", err)
	}
	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	w := &Walker{
		root:         root,
		hooks:        hooks,
		logger:       logger,
		ignore:       ignore,
		skipVendored: opts.SkipVendored,
		diffMode:     opts.GitDiffMode,
		changed:      opts.GitChangedFiles,
	}
	if w.diffActive() && w.changed == nil {
		logger.Warn("Git diff mode active but no changed files provided; every file is excluded")
	}
	return w, nil
}

// Root is the absolute directory being walked.
func (w *Walker) Root() string { return w.root }

func (w *Walker) diffActive() bool {
	return w.diffMode == GitDiffModeDiffOnly || w.diffMode == GitDiffModeSince
}

// Walk emits every eligible regular file below the root in lexical order.
func (w *Walker) Walk(ctx context.Context, emit func(File) error) error {
	w.logger.Info("Starting directory walk", slog.String("path", w.root))
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return fmt.Errorf("reading input directory %q: %w", path, err)
			}
			w.logger.Warn("Error accessing path during walk", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("Skipping symbolic link", slog.String("path", path))
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		isDir := d.IsDir()

		if pattern, ok := w.ignore.match(path, isDir); ok {
			w.skip(rel, fmt.Sprintf("Ignored by pattern: %s", pattern))
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		if w.skipVendored && isVendored(rel, isDir) {
			w.skip(rel, "Vendored path")
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		if isDir || !d.Type().IsRegular() || d.Name() == cache.FileName {
			return nil
		}
		if w.diffActive() {
			if _, ok := w.changed[rel]; !ok {
				w.skip(rel, fmt.Sprintf("Excluded by git diff mode %s", w.diffMode))
				return nil
			}
		}

		if hookErr := w.hooks.OnFileDiscovered(rel); hookErr != nil {
			w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
		}
		return emit(w.file(path, rel, d))
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			w.logger.Info("Directory walk cancelled", slog.String("reason", err.Error()))
			return err
		}
		return fmt.Errorf("directory walk failed: %w", err)
	}
	w.logger.Info("Directory walk completed")
	return nil
}

func (w *Walker) file(abs, rel string, d fs.DirEntry) File {
	f := File{Path: rel, Read: func() ([]byte, error) { return os.ReadFile(abs) }}
	info, err := d.Info()
	if err != nil {
		statErr := fmt.Errorf("%w: %s: %w", ErrStatFailed, rel, err)
		f.Read = func() ([]byte, error) { return nil, statErr }
		return f
	}
	f.Size = info.Size()
	f.ModTime = info.ModTime()
	return f
}

func (w *Walker) skip(rel, msg string) {
	w.logger.Debug("Path skipped", slog.String("path", rel), slog.String("reason", msg))
	if hookErr := w.hooks.OnFileStatusUpdate(rel, StatusSkipped, msg, 0); hookErr != nil {
		w.logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
	}
}

// isVendored applies go-enry's vendor rules. Directory rules are written
// against a trailing slash.
func isVendored(rel string, isDir bool) bool {
	if isDir {
		return enry.IsVendor(rel + "/")
	}
	return enry.IsVendor(rel)
}

// ignoreMatcher applies gitignore-style rules: later rules override earlier
// ones, "!" negates, and a trailing "/" restricts a rule to directories.
type ignoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	pattern string
	orig    string
	negated bool
	dirOnly bool
	base    string
}

func newIgnoreMatcher(root string, patterns []string, logger *slog.Logger) (*ignoreMatcher, error) {
	m := &ignoreMatcher{}
	file, err := findIgnoreFile(root)
	if err != nil {
		logger.Warn("Error searching for ignore file", slog.String("error", err.Error()))
	}
	if file != "" {
		lines, err := loadPatternsFromFile(file)
		if err != nil {
			return nil, err
		}
		if err := util.ValidateIgnorePatterns(lines); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		m.add(lines, filepath.Dir(file))
		logger.Debug("Loaded ignore file", slog.String("path", file), slog.Int("count", len(lines)))
	}
	m.add(patterns, root)
	return m, nil
}

func findIgnoreFile(start string) (string, error) {
	dir := start
	for {
		p := filepath.Join(dir, IgnoreFileName)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func loadPatternsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ignore file %s: %w", path, err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", path, err)
	}
	return out, nil
}

func (m *ignoreMatcher) add(patterns []string, base string) {
	for _, raw := range patterns {
		r := ignoreRule{orig: raw, base: base}
		p := strings.TrimSpace(raw)
		if strings.HasPrefix(p, "!") {
			r.negated = true
			p = p[1:]
		}
		if strings.HasSuffix(p, "/") {
			r.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		if p == "" || p == "/" {
			continue
		}
		r.pattern = p
		m.rules = append(m.rules, r)
	}
}

// match reports whether abs is ignored, with the deciding pattern.
func (m *ignoreMatcher) match(abs string, isDir bool) (string, bool) {
	ignored, decided := false, ""
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		rel, err := filepath.Rel(r.base, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if util.MatchesIgnorePattern(r.pattern, rel) {
			ignored, decided = !r.negated, r.orig
		}
	}
	return decided, ignored
}
