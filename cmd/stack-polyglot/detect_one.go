package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackvity/stack-polyglot/internal/cli"
	"github.com/stackvity/stack-polyglot/pkg/polyglot"
)

func newDetectOneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect-one <file>",
		Short: "Detect the language of a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ref, _ := cmd.Flags().GetString("registry")
			explain, _ := cmd.Flags().GetBool("explain")
			nameOnly, _ := cmd.Flags().GetBool("name-only")
			precedence, _ := cmd.Flags().GetString("shebang-precedence")

			opts := polyglot.Options{
				Registry:          ref,
				ShebangPrecedence: precedence,
				Logger:            commandLogger(cmd).Handler(),
			}
			det, err := opts.NewDetector()
			if err != nil {
				return err
			}

			var content []byte
			if !nameOnly {
				if content, err = os.ReadFile(path); err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
			}

			out := cmd.OutOrStdout()
			if explain {
				return cli.WriteTrace(out, path, det.Explain(path, content))
			}
			res := det.Detect(path, content)
			lang := res.Language
			if lang == "" {
				lang = "(unknown)"
			}
			_, err = fmt.Fprintf(out, "%s: %s [%s]\n", path, lang, res.Method)
			return err
		},
	}
	cmd.Flags().Bool("explain", false, "Print the per-stage candidate trace")
	cmd.Flags().Bool("name-only", false, "Detect from the file name alone without reading it")
	cmd.Flags().String("shebang-precedence", polyglot.DefaultShebangPrecedence, "Which wins when name and shebang both match: matcher or shebang")
	return cmd
}
