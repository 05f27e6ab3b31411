// Package config merges defaults, config files, profiles, environment and
// flags into polyglot.Options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
	tpl "github.com/stackvity/stack-polyglot/pkg/polyglot/template"
)

const (
	EnvPrefix         = "STACKPOLYGLOT"
	DefaultConfigName = "stack-polyglot"
)

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"input":                "input",
	"output":               "output",
	"output-format":        "outputFormat",
	"verbose":              "verbose",
	"registry":             "registry",
	"extension-case":       "extensionCase",
	"filename-case":        "filenameCase",
	"shebang-precedence":   "shebangPrecedence",
	"max-content-bytes":    "maxContentBytes",
	"shebang-max-line":     "shebangMaxLine",
	"concurrency":          "concurrency",
	"on-error":             "onError",
	"ignore":               "ignore",
	"skip-vendored":        "skipVendored",
	"binary-mode":          "binaryMode",
	"large-file-threshold": "largeFileThresholdMB",
	"large-file-mode":      "largeFileMode",
	"default-encoding":     "defaultEncoding",
	"template":             "templateFile",
	"git-ref":              "git.ref",
	"git-diff-only":        "git.diffOnly",
	"git-since":            "git.sinceRef",
	"watch-debounce":       "watch.debounce",
	"metrics":              "metrics",
	"explain":              "explain",
}

// LoadAndValidate loads configuration from all sources, validates the merged
// result and derives the fields the engine needs (absolute paths, byte
// thresholds, diff mode, template). Precedence, lowest first: defaults,
// config file, profile, STACKPOLYGLOT_* environment, flags.
func LoadAndValidate(cfgFile, profileName, appVersion string, verbose bool, flags *pflag.FlagSet) (polyglot.Options, *slog.Logger, error) {
	var opts polyglot.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		} else {
			tempLogger.Debug("No home directory, searching the working directory only", slog.Any("error", err))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
		tempLogger.Debug("No configuration file found, using defaults/env/flags.")
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		profile := v.Sub(profileKey)
		if profile == nil {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profile.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				tempLogger.Error("Error binding flag", slog.String("flag", name), slog.Any("error", err))
				return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", name, err)
			}
		}
	}

	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	if verbose {
		opts.Verbose = true
	}
	applyFlagOnlyOptions(&opts, flags)

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDeriveOptions(&opts, logger, flags); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.String("logLevel", logLevel.String()),
	)
	return opts, logger, nil
}

// applyFlagOnlyOptions copies flags that have no config key.
func applyFlagOnlyOptions(opts *polyglot.Options, flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	if flags.Changed("no-cache") {
		opts.IgnoreCacheRead, _ = flags.GetBool("no-cache")
	}
	if flags.Changed("clear-cache") {
		opts.ClearCache, _ = flags.GetBool("clear-cache")
	}
	if flags.Changed("watch") {
		opts.WatchMode, _ = flags.GetBool("watch")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}
	if flags.Changed("map") {
		mappings, _ := flags.GetStringToString("map")
		if opts.LanguageMappings == nil {
			opts.LanguageMappings = make(map[string]string, len(mappings))
		}
		maps.Copy(opts.LanguageMappings, mappings)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("outputFormat", string(polyglot.DefaultOutputFormat))
	v.SetDefault("verbose", false)
	v.SetDefault("tuiEnabled", polyglot.DefaultTuiEnabled)
	v.SetDefault("onError", string(polyglot.DefaultOnErrorMode))
	v.SetDefault("explain", false)
	v.SetDefault("metrics", false)

	v.SetDefault("registry", polyglot.DefaultRegistry)
	v.SetDefault("extensionCase", "")
	v.SetDefault("filenameCase", "")
	v.SetDefault("shebangPrecedence", polyglot.DefaultShebangPrecedence)
	v.SetDefault("maxContentBytes", polyglot.DefaultMaxContentBytes)
	v.SetDefault("shebangMaxLine", polyglot.DefaultShebangMaxLine)
	v.SetDefault("languageMappings", map[string]string{})

	v.SetDefault("concurrency", polyglot.DefaultConcurrency)
	v.SetDefault("cache", polyglot.DefaultCacheEnabled)

	v.SetDefault("ignore", []string{})
	v.SetDefault("skipVendored", polyglot.DefaultSkipVendored)
	v.SetDefault("binaryMode", string(polyglot.DefaultBinaryMode))
	v.SetDefault("largeFileThresholdMB", polyglot.DefaultLargeFileThresholdMB)
	v.SetDefault("largeFileMode", string(polyglot.DefaultLargeFileMode))
	v.SetDefault("defaultEncoding", "")
	v.SetDefault("templateFile", "")

	v.SetDefault("watch.debounce", polyglot.DefaultWatchDebounceString)
	v.SetDefault("git.ref", "")
	v.SetDefault("git.diffOnly", false)
	v.SetDefault("git.sinceRef", "")
}

func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

func configErr(logger *slog.Logger, key string, format string, args ...any) error {
	err := fmt.Errorf("%w: %s", polyglot.ErrConfigValidation, fmt.Sprintf(format, args...))
	logger.Error(err.Error(), slog.String("key", key))
	return err
}

// validateAndDeriveOptions checks the merged options and fills derived
// fields. Errors wrap polyglot.ErrConfigValidation.
func validateAndDeriveOptions(opts *polyglot.Options, logger *slog.Logger, flags *pflag.FlagSet) error {
	if opts.InputPath == "" {
		return configErr(logger, "input", "input path is required (-i, --input)")
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return configErr(logger, "input", "cannot resolve absolute input path '%s': %v", opts.InputPath, err)
	}
	opts.InputPath = absInput
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return configErr(logger, "input", "input path '%s' does not exist", opts.InputPath)
		}
		return configErr(logger, "input", "cannot access input path '%s': %v", opts.InputPath, err)
	}
	if !info.IsDir() {
		return configErr(logger, "input", "input path '%s' is not a directory", opts.InputPath)
	}

	if opts.OutputPath != "" {
		absOutput, err := filepath.Abs(opts.OutputPath)
		if err != nil {
			return configErr(logger, "output", "cannot resolve absolute output path '%s': %v", opts.OutputPath, err)
		}
		opts.OutputPath = absOutput
		if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
			return configErr(logger, "output", "cannot create report directory for '%s': %v", opts.OutputPath, err)
		}
	}

	allowedOnError := []polyglot.OnErrorMode{polyglot.OnErrorContinue, polyglot.OnErrorStop}
	if !isValidEnumValue(opts.OnErrorMode, allowedOnError) {
		return configErr(logger, "onError", "invalid value '%s' for key 'onError' (flag --on-error). Allowed: %v", opts.OnErrorMode, allowedOnError)
	}
	allowedBinaryMode := []polyglot.BinaryMode{polyglot.BinarySkip, polyglot.BinaryDetect, polyglot.BinaryError}
	if !isValidEnumValue(opts.BinaryMode, allowedBinaryMode) {
		return configErr(logger, "binaryMode", "invalid value '%s' for key 'binaryMode' (flag --binary-mode). Allowed: %v", opts.BinaryMode, allowedBinaryMode)
	}
	allowedLargeFileMode := []polyglot.LargeFileMode{polyglot.LargeFileSkip, polyglot.LargeFileDetect, polyglot.LargeFileError}
	if !isValidEnumValue(opts.LargeFileMode, allowedLargeFileMode) {
		return configErr(logger, "largeFileMode", "invalid value '%s' for key 'largeFileMode' (flag --large-file-mode). Allowed: %v", opts.LargeFileMode, allowedLargeFileMode)
	}
	allowedOutputFormat := []polyglot.OutputFormat{polyglot.OutputFormatText, polyglot.OutputFormatJSON, polyglot.OutputFormatCSV}
	if !isValidEnumValue(opts.OutputFormat, allowedOutputFormat) {
		return configErr(logger, "outputFormat", "invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", opts.OutputFormat, allowedOutputFormat)
	}

	// Remaining value checks (case policies, shebang precedence, globs,
	// encodings) live with the options themselves.
	if err := opts.Validate(); err != nil {
		logger.Error(err.Error())
		return err
	}

	if opts.TemplatePath != "" {
		absTpl, err := filepath.Abs(opts.TemplatePath)
		if err != nil {
			return configErr(logger, "templateFile", "cannot resolve template path '%s': %v", opts.TemplatePath, err)
		}
		opts.TemplatePath = absTpl
		tmpl, err := tpl.LoadFile(opts.TemplatePath)
		if err != nil {
			return configErr(logger, "templateFile", "%v", err)
		}
		opts.Template = tmpl
		logger.Debug("Loaded custom template", slog.String("path", opts.TemplatePath))
	}

	debounce, err := time.ParseDuration(opts.WatchConfig.Debounce)
	if err != nil {
		if flags != nil && flags.Changed("watch-debounce") {
			return configErr(logger, "watch.debounce", "invalid watch debounce duration '%s': %v", opts.WatchConfig.Debounce, err)
		}
		logger.Warn("Could not parse watch.debounce, using default",
			slog.String("value", opts.WatchConfig.Debounce),
			slog.Duration("default", polyglot.DefaultWatchDebounce),
			slog.String("error", err.Error()))
		debounce = polyglot.DefaultWatchDebounce
	}
	if debounce < 0 {
		return configErr(logger, "watch.debounce", "invalid negative watch debounce duration '%s'", opts.WatchConfig.Debounce)
	}
	opts.WatchDebounce = debounce

	if opts.Concurrency == 0 {
		opts.Concurrency = runtime.NumCPU()
		logger.Debug("Concurrency not set, defaulting to number of CPUs", slog.Int("concurrency", opts.Concurrency))
	}
	opts.LargeFileThreshold = opts.LargeFileThresholdMB * 1024 * 1024

	opts.GitDiffMode = polyglot.GitDiffModeNone
	switch {
	case opts.GitConfig.DiffOnly && opts.GitConfig.SinceRef != "":
		return configErr(logger, "git", "git.diffOnly and git.sinceRef cannot be combined")
	case opts.GitConfig.DiffOnly:
		opts.GitDiffMode = polyglot.GitDiffModeDiffOnly
	case opts.GitConfig.SinceRef != "":
		opts.GitDiffMode = polyglot.GitDiffModeSince
	}
	if opts.GitConfig.Ref != "" {
		if opts.GitDiffMode != polyglot.GitDiffModeNone {
			return configErr(logger, "git.ref", "git.ref reads a fixed revision and cannot be combined with a git diff mode")
		}
		if opts.WatchMode {
			return configErr(logger, "git.ref", "git.ref reads a fixed revision and cannot be watched")
		}
	}
	logger.Debug("Git mode derived",
		slog.String("mode", string(opts.GitDiffMode)),
		slog.String("sinceRef", opts.GitConfig.SinceRef),
		slog.String("ref", opts.GitConfig.Ref))

	if opts.Verbose && opts.TuiEnabled {
		logger.Debug("Verbose mode enabled, TUI disabled")
		opts.TuiEnabled = false
	}

	logger.Debug("Final derived settings validated",
		slog.Int("concurrency", opts.Concurrency),
		slog.Int64("largeFileThresholdBytes", opts.LargeFileThreshold),
		slog.Duration("watchDebounce", opts.WatchDebounce),
		slog.Bool("tuiEnabledEffective", opts.TuiEnabled),
	)
	return nil
}
