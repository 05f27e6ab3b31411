package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/stack-polyglot/internal/cli"
	"github.com/stackvity/stack-polyglot/internal/testutil"
	"github.com/stackvity/stack-polyglot/pkg/polyglot"
)

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseOptions(input string) polyglot.Options {
	return polyglot.Options{
		InputPath:          input,
		Logger:             slog.NewTextHandler(io.Discard, nil),
		OutputFormat:       polyglot.OutputFormatJSON,
		Concurrency:        2,
		BinaryMode:         polyglot.BinarySkip,
		LargeFileMode:      polyglot.LargeFileDetect,
		LargeFileThreshold: 10 * 1024 * 1024,
		OnErrorMode:        polyglot.OnErrorContinue,
		GitDiffMode:        polyglot.GitDiffModeNone,
		WatchDebounce:      50 * time.Millisecond,
	}
}

func languages(t *testing.T, out string) map[string]string {
	t.Helper()
	var report polyglot.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	got := make(map[string]string, len(report.Files))
	for _, f := range report.Files {
		got[f.Path] = f.Language
	}
	return got
}

func sampleTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.CreateTree(t, dir, map[string]string{
		"main.go":        "package main\n\nfunc main() {}\n",
		"scripts/deploy": "#!/usr/bin/env bash\necho deploy\n",
		"Dockerfile":     "FROM alpine\n",
	})
	return dir
}

func TestRun_ReportToStdout(t *testing.T) {
	dir := sampleTree(t)
	var out bytes.Buffer

	err := cli.Run(context.Background(), baseOptions(dir), discardLogger(), cli.Streams{Out: &out, Err: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"main.go":        "Go",
		"scripts/deploy": "Shell",
		"Dockerfile":     "Dockerfile",
	}, languages(t, out.String()))
}

func TestRun_ReportToFile(t *testing.T) {
	dir := sampleTree(t)
	reportPath := filepath.Join(t.TempDir(), "out", "report.csv")
	opts := baseOptions(dir)
	opts.OutputPath = reportPath
	opts.OutputFormat = polyglot.OutputFormatCSV
	var out bytes.Buffer

	require.NoError(t, cli.Run(context.Background(), opts, discardLogger(), cli.Streams{Out: &out, Err: io.Discard}))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "path,language,method,sizeBytes,cacheStatus\n"))
	assert.Contains(t, string(data), "main.go,Go,Extension,")
}

func TestRun_ExplainAndMetrics(t *testing.T) {
	dir := sampleTree(t)
	opts := baseOptions(dir)
	opts.OutputFormat = polyglot.OutputFormatText
	opts.Explain = true
	opts.Metrics = true
	var out bytes.Buffer

	require.NoError(t, cli.Run(context.Background(), opts, discardLogger(), cli.Streams{Out: &out, Err: io.Discard}))
	text := out.String()
	assert.Contains(t, text, "main.go => Go [Extension]")
	assert.Contains(t, text, "scripts/deploy => Shell [Shebang]")
	assert.Contains(t, text, "matcher")
	assert.Contains(t, text, "Metrics:")
	assert.Contains(t, text, "detection duration: n=3")
}

func TestRun_BadRegistry(t *testing.T) {
	opts := baseOptions(t.TempDir())
	opts.Registry = filepath.Join(t.TempDir(), "missing.yaml")
	err := cli.Run(context.Background(), opts, discardLogger(), cli.Streams{Out: io.Discard, Err: io.Discard})
	require.Error(t, err)
}

func initRepo(t *testing.T, dir string) *gogit.Worktree {
	t.Helper()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&gogit.AddOptions{All: true}))
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return wt
}

func TestRun_GitModes(t *testing.T) {
	dir := sampleTree(t)
	initRepo(t, dir)
	testutil.CreateTree(t, dir, map[string]string{"main.go": "package main\n\nfunc main() { println() }\n"})

	t.Run("diff only", func(t *testing.T) {
		opts := baseOptions(dir)
		opts.GitDiffMode = polyglot.GitDiffModeDiffOnly
		var out bytes.Buffer
		require.NoError(t, cli.Run(context.Background(), opts, discardLogger(), cli.Streams{Out: &out, Err: io.Discard}))
		assert.Equal(t, map[string]string{"main.go": "Go"}, languages(t, out.String()))
	})

	t.Run("revision", func(t *testing.T) {
		testutil.CreateTree(t, dir, map[string]string{"extra.py": "print('x')\n"})
		opts := baseOptions(dir)
		opts.GitConfig.Ref = "HEAD"
		var out bytes.Buffer
		require.NoError(t, cli.Run(context.Background(), opts, discardLogger(), cli.Streams{Out: &out, Err: io.Discard}))
		got := languages(t, out.String())
		assert.Len(t, got, 3)
		assert.NotContains(t, got, "extra.py")
	})

	t.Run("not a repository", func(t *testing.T) {
		opts := baseOptions(t.TempDir())
		opts.GitDiffMode = polyglot.GitDiffModeDiffOnly
		err := cli.Run(context.Background(), opts, discardLogger(), cli.Streams{Out: io.Discard, Err: io.Discard})
		assert.ErrorIs(t, err, polyglot.ErrGitOperation)
	})
}

func TestRun_Watch(t *testing.T) {
	dir := sampleTree(t)
	opts := baseOptions(dir)
	opts.WatchMode = true
	opts.OutputFormat = polyglot.OutputFormatCSV
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cli.Run(ctx, opts, discardLogger(), cli.Streams{Out: out, Err: io.Discard})
	}()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "path,language") == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("import os\n"), 0o644))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "app.py,Python,Extension")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}
