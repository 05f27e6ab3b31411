package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train --samples <dir> -o <snapshot>",
		Short: "Train classifier models from a samples tree and write a snapshot",
		Long: `train reads a samples tree laid out as <dir>/<language>/<files>, builds one
classifier model per language named in the selected registry (--registry)
and writes the registry with those models as a snapshot.

Directories that name no registered language are skipped with a warning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := commandLogger(cmd)
			ref, _ := cmd.Flags().GetString("registry")
			samples, _ := cmd.Flags().GetString("samples")
			out, _ := cmd.Flags().GetString("output")

			if !registry.IsSnapshotPath(out) {
				return fmt.Errorf("output %q must end in .gob or .snapshot.json", out)
			}
			if info, err := os.Stat(samples); err != nil || !info.IsDir() {
				return fmt.Errorf("samples directory %q not found", samples)
			}

			reg, err := registry.Load(ref, registry.DefaultCasePolicy())
			if err != nil {
				return err
			}
			models, skipped, err := registry.Train(reg, os.DirFS(samples), ".")
			if err != nil {
				return fmt.Errorf("training: %w", err)
			}
			for _, dir := range skipped {
				msg := "Skipping samples for unknown language"
				if hint := reg.Suggest(dir); hint != "" {
					logger.Warn(msg, slog.String("dir", dir), slog.String("didYouMean", hint))
				} else {
					logger.Warn(msg, slog.String("dir", dir))
				}
			}
			if len(models) == 0 {
				return errors.New("no sample directory matched a registered language")
			}

			trained, err := reg.WithModels(models)
			if err != nil {
				return err
			}
			if err := trained.Compile(out); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			logger.Info("Snapshot written", slog.String("path", out), slog.Int("models", len(models)))
			return nil
		},
	}
	cmd.Flags().String("samples", "", "Samples root, one directory per language (required)")
	cmd.Flags().StringP("output", "o", "", "Snapshot path (required)")
	_ = cmd.MarkFlagRequired("samples")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
