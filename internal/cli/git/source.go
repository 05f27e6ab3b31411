package git

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
	"github.com/stackvity/stack-polyglot/pkg/util"
)

// RevisionSource enumerates the files of a committed tree instead of the
// working copy. It implements polyglot.FileSource.
type RevisionSource struct {
	client       *Client
	dir          string
	ref          string
	ignore       []string
	skipVendored bool
	hooks        polyglot.Hooks
}

// NewRevisionSource reads the tree at ref for the part of the repository
// under dir. Ignore patterns are matched against paths relative to dir.
func (c *Client) NewRevisionSource(dir, ref string, ignore []string, skipVendored bool, hooks polyglot.Hooks) *RevisionSource {
	if hooks == nil {
		hooks = &polyglot.NoOpHooks{}
	}
	return &RevisionSource{client: c, dir: dir, ref: ref, ignore: ignore, skipVendored: skipVendored, hooks: hooks}
}

// Walk emits every regular file in the tree. Symlinks and submodules are
// skipped. ModTime is the commit time.
func (s *RevisionSource) Walk(ctx context.Context, emit func(polyglot.File) error) error {
	repo, prefix, err := s.client.repoAt(s.dir)
	if err != nil {
		return err
	}
	commit, err := s.client.resolveCommit(repo, s.ref)
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return gitErrorf("reading tree of %q: %w", s.ref, err)
	}
	if prefix != "" {
		if tree, err = tree.Tree(prefix); err != nil {
			return gitErrorf("%q not present at %q: %w", prefix, s.ref, err)
		}
	}
	s.client.logger.Debug("Walking revision",
		slog.String("ref", s.ref), slog.String("commit", commit.Hash.String()), slog.String("prefix", prefix))

	files := tree.Files()
	defer files.Close()
	return files.ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Mode == filemode.Symlink || f.Mode == filemode.Submodule {
			return nil
		}
		if pattern, ok := util.FirstIgnoreMatch(s.ignore, f.Name); ok {
			s.skip(f.Name, "Ignored by pattern: "+pattern)
			return nil
		}
		if s.skipVendored && enry.IsVendor(f.Name) {
			s.skip(f.Name, "Vendored path")
			return nil
		}
		if err := s.hooks.OnFileDiscovered(f.Name); err != nil {
			s.client.logger.Warn("Hook OnFileDiscovered failed", slog.String("path", f.Name), slog.Any("error", err))
		}
		return emit(blobFile(f, commit))
	})
}

func (s *RevisionSource) skip(path, msg string) {
	if err := s.hooks.OnFileStatusUpdate(path, polyglot.StatusSkipped, msg, 0); err != nil {
		s.client.logger.Warn("Hook OnFileStatusUpdate failed", slog.String("path", path), slog.Any("error", err))
	}
}

func blobFile(f *object.File, commit *object.Commit) polyglot.File {
	return polyglot.File{
		Path:    strings.TrimPrefix(f.Name, "/"),
		Size:    f.Size,
		ModTime: commit.Committer.When,
		Read: func() ([]byte, error) {
			r, err := f.Reader()
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return io.ReadAll(r)
		},
	}
}
