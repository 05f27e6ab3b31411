package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-enry/go-enry/v2"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/cache"
	"github.com/stackvity/stack-polyglot/pkg/util"
)

// watch runs once, then reruns after every burst of changes under the input
// directory has been quiet for opts.WatchDebounce. It returns when ctx is
// done.
func (r *runner) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	if err := r.addWatches(watcher, r.opts.InputPath); err != nil {
		return fmt.Errorf("watching %s: %w", r.opts.InputPath, err)
	}

	r.rerun(ctx)
	r.logger.Info("Watching for changes", slog.String("path", r.opts.InputPath), slog.Duration("debounce", r.opts.WatchDebounce))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Watch mode stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !r.relevant(event) {
				continue
			}
			r.logger.Debug("Change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := r.addWatches(watcher, event.Name); err != nil {
						r.logger.Warn("Failed to watch new directory", slog.String("path", event.Name), slog.Any("error", err))
					}
				}
			}
			timer.Reset(r.opts.WatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("File watcher error", slog.Any("error", err))

		case <-timer.C:
			r.rerun(ctx)
		}
	}
}

// rerun performs one pass; failures are logged and watching continues.
func (r *runner) rerun(ctx context.Context) {
	if _, err := r.runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("Run failed, waiting for further changes", slog.Any("error", err))
	}
}

// relevant drops events for files the run itself writes and for paths the
// walker would never visit.
func (r *runner) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	base := filepath.Base(name)
	if strings.HasPrefix(base, cache.FileName) || name == r.opts.CacheFilePath {
		return false
	}
	if r.opts.OutputPath != "" && (name == r.opts.OutputPath || strings.HasPrefix(base, filepath.Base(r.opts.OutputPath)+".tmp-")) {
		return false
	}
	rel, err := filepath.Rel(r.opts.InputPath, name)
	if err != nil {
		return true
	}
	return !r.excluded(filepath.ToSlash(rel), false)
}

func (r *runner) excluded(rel string, isDir bool) bool {
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return true
	}
	if _, ok := util.FirstIgnoreMatch(r.opts.IgnorePatterns, rel); ok {
		return true
	}
	if isDir {
		rel += "/"
	}
	return r.opts.SkipVendored && enry.IsVendor(rel)
}

// addWatches registers root and every directory below it that a run would
// descend into.
func (r *runner) addWatches(watcher *fsnotify.Watcher, root string) error {
	visited := make(map[string]bool)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil || visited[resolved] {
			return filepath.SkipDir
		}
		visited[resolved] = true
		if rel, err := filepath.Rel(r.opts.InputPath, path); err == nil && rel != "." {
			if r.excluded(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		if err := watcher.Add(path); err != nil {
			r.logger.Warn("Failed to add watch", slog.String("path", path), slog.Any("error", err))
		}
		return nil
	})
}
