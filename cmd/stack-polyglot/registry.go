package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Validate, list and compile language registries",
	}
	cmd.AddCommand(newRegistryValidateCmd(), newRegistryListCmd(), newRegistryCompileCmd())
	return cmd
}

func newRegistryValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a registry document or snapshot and report problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(args[0], registry.DefaultCasePolicy())
			if err != nil {
				return err
			}
			trained := 0
			for _, d := range reg.Languages() {
				if d.Model != nil {
					trained++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (version %s, %d languages, %d trained, %d disambiguations)\n",
				args[0], reg.Version(), reg.Languages().Len(), trained, len(reg.Disambiguations()))
			return nil
		},
	}
}

func newRegistryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the languages of the selected registry in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref, _ := cmd.Flags().GetString("registry")
			langType, _ := cmd.Flags().GetString("type")
			reg, err := registry.Load(ref, registry.DefaultCasePolicy())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tEXTENSIONS\tINTERPRETERS\tMODEL")
			for _, d := range reg.Languages() {
				if langType != "" && string(d.Type) != langType {
					continue
				}
				model := "-"
				if d.Model != nil {
					model = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Type,
					strings.Join(d.Extensions, " "), strings.Join(d.Interpreters, " "), model)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("type", "", "Only list languages of this type (programming, markup, data, prose)")
	return cmd
}

func newRegistryCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a registry document into a snapshot (.gob or .snapshot.json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if !registry.IsSnapshotPath(out) {
				return fmt.Errorf("output %q must end in .gob or .snapshot.json", out)
			}
			reg, err := registry.Load(args[0], registry.DefaultCasePolicy())
			if err != nil {
				return err
			}
			if err := reg.Compile(out); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			commandLogger(cmd).Info("Snapshot written", "path", out, "languages", reg.Languages().Len())
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Snapshot path (required)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
