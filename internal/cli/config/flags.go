package config

import (
	"github.com/spf13/pflag"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
)

// DefinePersistentFlags adds the flags shared by every command.
func DefinePersistentFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Config file path (default: ./stack-polyglot.yaml, ~/.config/stack-polyglot/stack-polyglot.yaml)")
	flags.String("profile", "", "Named profile from the config file (profiles.<name>)")
	flags.BoolP("verbose", "v", false, "Enable debug logging (disables the TUI)")
	flags.String("registry", polyglot.DefaultRegistry, "Language registry: builtin, linguist, or a registry/snapshot file")
}

// DefineFlags adds the flags of a directory scan.
func DefineFlags(flags *pflag.FlagSet) {
	flags.StringP("input", "i", "", "Directory to scan (required)")
	flags.StringP("output", "o", "", "Report file (default: stdout)")
	flags.String("output-format", string(polyglot.DefaultOutputFormat), "Report format: text, json or csv")
	flags.String("template", "", "Custom text/template for the text report")

	flags.String("extension-case", "", "Extension matching: sensitive or insensitive")
	flags.String("filename-case", "", "Filename matching: sensitive or insensitive")
	flags.String("shebang-precedence", polyglot.DefaultShebangPrecedence, "Which wins when name and shebang both match: matcher or shebang")
	flags.Int("max-content-bytes", polyglot.DefaultMaxContentBytes, "Content prefix inspected by heuristics and the classifier")
	flags.Int("shebang-max-line", polyglot.DefaultShebangMaxLine, "Longest first line parsed as a shebang")
	flags.StringToString("map", nil, "Extension to language override, e.g. --map .tpl=Go (repeatable)")
	flags.Bool("explain", false, "Print the per-stage candidate trace of every file")

	flags.Int("concurrency", polyglot.DefaultConcurrency, "Worker count (0 = number of CPUs)")
	flags.Bool("no-cache", false, "Ignore cached results for this run (the cache is still updated)")
	flags.Bool("clear-cache", false, "Delete the cache before running")
	flags.String("on-error", string(polyglot.DefaultOnErrorMode), "Per-file error handling: continue or stop")

	flags.StringSlice("ignore", nil, "Ignore glob (doublestar syntax, repeatable)")
	flags.Bool("skip-vendored", polyglot.DefaultSkipVendored, "Skip vendored and third-party paths")
	flags.String("binary-mode", string(polyglot.DefaultBinaryMode), "Binary files: skip, detect or error")
	flags.Int64("large-file-threshold", polyglot.DefaultLargeFileThresholdMB, "Large file threshold in MB (0 disables)")
	flags.String("large-file-mode", string(polyglot.DefaultLargeFileMode), "Large files: skip, detect (by name only) or error")
	flags.String("default-encoding", "", "Encoding assumed when detection is inconclusive")

	flags.String("git-ref", "", "Read files from this git revision instead of the working tree")
	flags.Bool("git-diff-only", false, "Only scan files with uncommitted changes")
	flags.String("git-since", "", "Only scan files changed since this git reference")

	flags.Bool("watch", false, "Rescan when files change")
	flags.String("watch-debounce", polyglot.DefaultWatchDebounceString, "Quiet period before a watch rescan")
	flags.Bool("no-tui", false, "Disable the interactive progress view")
	flags.Bool("metrics", false, "Print a detection metrics summary after the report")
}
