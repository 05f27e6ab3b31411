// Package git provides the go-git backed helpers the CLI uses to scope a run
// to changed files or to a past revision.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
)

// Client runs read-only git queries against a repository on disk.
type Client struct {
	logger *slog.Logger
}

// NewClient creates a Client. A nil handler discards logs.
func NewClient(loggerHandler slog.Handler) *Client {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	return &Client{logger: slog.New(loggerHandler).With(slog.String("component", "gitClient"))}
}

func gitErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %w", polyglot.ErrGitOperation, fmt.Errorf(format, args...))
}

// repoAt opens the repository containing dir and returns it together with
// dir's slash-separated prefix relative to the worktree root ("" at the root).
func (c *Client) repoAt(dir string) (*git.Repository, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", gitErrorf("resolving path %q: %w", dir, err)
	}
	repo, err := git.PlainOpenWithOptions(absDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, "", gitErrorf("repository not found at or above %q: %w", absDir, err)
		}
		return nil, "", gitErrorf("opening repository at %q: %w", absDir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no worktree; paths are taken from the tree root.
		return repo, "", nil
	}
	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolved
	}
	rel, err := filepath.Rel(root, absDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, "", gitErrorf("%q is outside worktree %q", absDir, root)
	}
	if rel == "." {
		rel = ""
	}
	return repo, filepath.ToSlash(rel), nil
}

func (c *Client) resolveCommit(repo *git.Repository, ref string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		c.logger.Error("Failed to resolve revision", slog.String("ref", ref), slog.Any("error", err))
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, gitErrorf("invalid git reference %q: %w", ref, err)
		}
		return nil, gitErrorf("could not resolve git reference %q: %w", ref, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, gitErrorf("loading commit for %q: %w", ref, err)
	}
	return commit, nil
}

// relativeTo maps a worktree-relative path to one relative to prefix.
func relativeTo(prefix, p string) (string, bool) {
	p = filepath.ToSlash(p)
	if prefix == "" {
		return p, true
	}
	if !strings.HasPrefix(p, prefix+"/") {
		return "", false
	}
	return strings.TrimPrefix(p, prefix+"/"), true
}

// ChangedFiles lists the files changed under dir, as slash-separated paths
// relative to dir. DiffOnly reports staged and unstaged changes to tracked
// files. Since reports files touched between ref and HEAD.
func (c *Client) ChangedFiles(ctx context.Context, dir string, mode polyglot.GitDiffMode, ref string) (map[string]struct{}, error) {
	logArgs := []any{slog.String("dir", dir), slog.String("mode", string(mode)), slog.String("ref", ref)}
	c.logger.Debug("Collecting changed files", logArgs...)

	repo, prefix, err := c.repoAt(dir)
	if err != nil {
		return nil, err
	}
	changed := make(map[string]struct{})
	add := func(p string) {
		if p == "" {
			return
		}
		if rel, ok := relativeTo(prefix, p); ok {
			changed[rel] = struct{}{}
		}
	}

	switch mode {
	case polyglot.GitDiffModeDiffOnly:
		wt, err := repo.Worktree()
		if err != nil {
			return nil, gitErrorf("diff mode needs a worktree: %w", err)
		}
		status, err := wt.Status()
		if err != nil {
			return nil, gitErrorf("reading status: %w", err)
		}
		for p, st := range status {
			untracked := st.Staging == git.Untracked && st.Worktree == git.Untracked
			if untracked || (st.Staging == git.Unmodified && st.Worktree == git.Unmodified) {
				continue
			}
			add(p)
		}

	case polyglot.GitDiffModeSince:
		if ref == "" {
			return nil, gitErrorf("diff mode %q requires a reference", mode)
		}
		head, err := repo.Head()
		if err != nil {
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				c.logger.Warn("HEAD not found, repository may be empty", logArgs...)
				return changed, nil
			}
			return nil, gitErrorf("reading HEAD: %w", err)
		}
		headCommit, err := repo.CommitObject(head.Hash())
		if err != nil {
			return nil, gitErrorf("loading HEAD commit: %w", err)
		}
		since, err := c.resolveCommit(repo, ref)
		if err != nil {
			return nil, err
		}
		patch, err := since.PatchContext(ctx, headCommit)
		if err != nil {
			return nil, gitErrorf("diffing %q against HEAD: %w", ref, err)
		}
		for _, fp := range patch.FilePatches() {
			from, to := fp.Files()
			// Deleted files have no content left to detect.
			if to != nil {
				add(to.Path())
			} else if from != nil {
				c.logger.Debug("Skipping deleted file", slog.String("path", from.Path()))
			}
		}

	default:
		return nil, gitErrorf("unsupported diff mode %q", mode)
	}

	c.logger.Debug("Changed files collected", append(logArgs, slog.Int("count", len(changed)))...)
	return changed, nil
}
