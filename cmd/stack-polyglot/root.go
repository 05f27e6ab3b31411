package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stackvity/stack-polyglot/internal/cli"
	"github.com/stackvity/stack-polyglot/internal/cli/config"
)

var (
	// Set at build time with -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stack-polyglot -i <inputDir>",
		Short: "Detects the programming language of every file in a directory.",
		Long: `stack-polyglot walks a source tree and names the language of each file,
using exact filenames, extensions, shebang lines, content heuristics and a
trained token classifier, in that order.

Results are cached between runs and can be limited to files changed in git.
Reports are written as text, JSON or CSV.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDetect,
	}
	root.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")

	config.DefinePersistentFlags(root.PersistentFlags())
	config.DefineFlags(root.Flags())

	root.AddCommand(newRegistryCmd(), newTrainCmd(), newDetectOneCmd())
	return root
}

func runDetect(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfgFile, _ := cmd.Flags().GetString("config")
	profile, _ := cmd.Flags().GetString("profile")
	verbose, _ := cmd.Flags().GetBool("verbose")

	opts, logger, err := config.LoadAndValidate(cfgFile, profile, version, verbose, cmd.Flags())
	if err != nil {
		return err
	}
	return cli.Run(ctx, opts, logger, cli.Streams{
		Out: cmd.OutOrStdout(),
		Err: cmd.ErrOrStderr(),
		TTY: term.IsTerminal(int(os.Stderr.Fd())),
	})
}

// commandLogger is the logger of the utility subcommands, which do not go
// through the config loader.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
