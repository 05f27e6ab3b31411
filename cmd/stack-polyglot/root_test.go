package main

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/stack-polyglot/internal/testutil"
)

const miniRegistry = "../../pkg/polyglot/registry/testdata/mini.yaml"

// executeCommand runs a fresh root command and captures its output.
func executeCommand(args ...string) (stdout string, stderr string, err error) {
	return executeOn(newRootCmd(), args...)
}

func executeOn(root *cobra.Command, args ...string) (string, string, error) {
	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)
	root.SetOut(stdoutBuf)
	root.SetErr(stderrBuf)
	root.SetArgs(args)
	err := root.Execute()
	return stdoutBuf.String(), stderrBuf.String(), err
}

func TestRootCmdHelp(t *testing.T) {
	stdout, stderr, err := executeCommand("--help")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "stack-polyglot -i <inputDir>")
	for _, sub := range []string{"registry", "train", "detect-one"} {
		assert.Contains(t, stdout, sub)
	}
}

func TestRootCmdHelp_AllFlagsPresent(t *testing.T) {
	root := newRootCmd()
	stdout, _, err := executeOn(root, "--help")
	require.NoError(t, err)

	check := func(f *pflag.Flag) {
		assert.Contains(t, stdout, "--"+f.Name, "help should list --%s", f.Name)
		if f.Shorthand != "" {
			assert.Contains(t, stdout, "-"+f.Shorthand+",", "help should list -%s", f.Shorthand)
		}
	}
	root.Flags().VisitAll(check)
	root.PersistentFlags().VisitAll(check)
}

func TestRootCmdVersion(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	version, commit, date = "test-1.2.3", "testcommit123", "2026-01-01T10:00:00Z"
	defer func() { version, commit, date = origVersion, origCommit, origDate }()

	stdout, stderr, err := executeCommand("--version")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Equal(t, fmt.Sprintf("stack-polyglot version %s (commit: %s, built: %s)\n", version, commit, date), stdout)
}

func TestRootCmdFlagParsingErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		errorMsg string
	}{
		{name: "unknown flag", args: []string{"-i", ".", "--unknown-flag"}, errorMsg: "unknown flag: --unknown-flag"},
		{name: "bad int", args: []string{"-i", ".", "--concurrency", "abc"}, errorMsg: `invalid argument "abc" for "--concurrency" flag`},
		{name: "positional args", args: []string{"somewhere"}, errorMsg: `unknown command "somewhere"`},
		{name: "detect-one without file", args: []string{"detect-one"}, errorMsg: "accepts 1 arg(s), received 0"},
		{name: "compile without output", args: []string{"registry", "compile", miniRegistry}, errorMsg: `required flag(s) "output" not set`},
		{name: "train without samples", args: []string{"train", "-o", "x.gob"}, errorMsg: `required flag(s) "samples" not set`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := executeCommand(tt.args...)
			require.Error(t, err)
			assert.Contains(t, stderr, tt.errorMsg)
		})
	}
}

func TestRootCmd_DetectsDirectory(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateTree(t, dir, map[string]string{
		"main.go":    "package main\n",
		"Dockerfile": "FROM alpine\n",
	})

	stdout, _, err := executeCommand("-i", dir, "--output-format", "csv", "--no-tui", "--no-cache")

	require.NoError(t, err)
	assert.Contains(t, stdout, "path,language,method,sizeBytes,cacheStatus\n")
	assert.Contains(t, stdout, "Dockerfile,Dockerfile,Filename,")
	assert.Contains(t, stdout, "main.go,Go,Extension,")
}

func TestRootCmd_InvalidConfiguration(t *testing.T) {
	_, _, err := executeCommand("-i", t.TempDir(), "--output-format", "xml", "--no-tui")
	require.Error(t, err)
}
