package polyglot

import (
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/cache"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/detect"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/encoding"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
	"github.com/stackvity/stack-polyglot/pkg/util"
)

// WatchConfig holds settings related to watch mode.
type WatchConfig struct {
	Debounce string `mapstructure:"debounce"`
}

// GitConfig holds settings related to git integration.
type GitConfig struct {
	// Ref, when set, reads files from that revision instead of the working tree.
	Ref      string `mapstructure:"ref"`
	DiffOnly bool   `mapstructure:"diffOnly"`
	SinceRef string `mapstructure:"sinceRef"`
}

// File is one entry produced by a FileSource. Path is slash-separated and
// relative to the source root.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
	Read    func() ([]byte, error)
}

// FileSource enumerates the files of a run. Walk stops at the first error
// returned by emit.
type FileSource interface {
	Walk(ctx context.Context, emit func(File) error) error
}

// Detector is the per-file detection the engine drives. *detect.Detector
// implements it.
type Detector interface {
	Detect(filename string, content []byte) detect.Result
	Explain(filename string, content []byte) detect.Trace
	Fingerprint() string
}

// Hooks receives progress callbacks. Implementations must be safe for
// concurrent use.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks ignores every callback.
type NoOpHooks struct{}

func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// Options holds all configuration for a DetectFiles run.
type Options struct {
	// --- Paths & reporting ---
	InputPath      string       `mapstructure:"input"`
	OutputPath     string       `mapstructure:"output"` // report destination; empty means stdout
	OutputFormat   OutputFormat `mapstructure:"outputFormat"`
	AppVersion     string       `mapstructure:"-"`
	ConfigFilePath string       `mapstructure:"-"`
	ProfileName    string       `mapstructure:"-"`

	// --- Behavior ---
	Verbose     bool        `mapstructure:"verbose"`
	TuiEnabled  bool        `mapstructure:"tuiEnabled"`
	OnErrorMode OnErrorMode `mapstructure:"onError"`
	Explain     bool        `mapstructure:"explain"`
	Metrics     bool        `mapstructure:"metrics"`

	// --- Detection ---
	Registry          string            `mapstructure:"registry"` // builtin, linguist, or a registry/snapshot path
	ExtensionCase     string            `mapstructure:"extensionCase"`
	FilenameCase      string            `mapstructure:"filenameCase"`
	ShebangPrecedence string            `mapstructure:"shebangPrecedence"`
	MaxContentBytes   int               `mapstructure:"maxContentBytes"`
	ShebangMaxLine    int               `mapstructure:"shebangMaxLine"`
	LanguageMappings  map[string]string `mapstructure:"languageMappings"` // extension -> language

	// --- Performance & caching ---
	Concurrency     int    `mapstructure:"concurrency"`
	CacheEnabled    bool   `mapstructure:"cache"`
	IgnoreCacheRead bool   `mapstructure:"-"`
	ClearCache      bool   `mapstructure:"-"`
	CacheFilePath   string `mapstructure:"-"`

	// --- File handling & filtering ---
	IgnorePatterns       []string      `mapstructure:"ignore"`
	SkipVendored         bool          `mapstructure:"skipVendored"`
	BinaryMode           BinaryMode    `mapstructure:"binaryMode"`
	LargeFileThresholdMB int64         `mapstructure:"largeFileThresholdMB"`
	LargeFileThreshold   int64         `mapstructure:"-"` // bytes, derived
	LargeFileMode        LargeFileMode `mapstructure:"largeFileMode"`
	DefaultEncoding      string        `mapstructure:"defaultEncoding"`

	// --- Output ---
	TemplatePath string             `mapstructure:"templateFile"`
	Template     *template.Template `mapstructure:"-"`

	// --- Workflow ---
	WatchMode       bool                `mapstructure:"-"`
	WatchDebounce   time.Duration       `mapstructure:"-"`
	WatchConfig     WatchConfig         `mapstructure:"watch"`
	GitConfig       GitConfig           `mapstructure:"git"`
	GitDiffMode     GitDiffMode         `mapstructure:"-"`
	GitChangedFiles map[string]struct{} `mapstructure:"-"`

	// --- Injected dependencies ---
	EventHooks            Hooks                `mapstructure:"-"`
	Logger                slog.Handler         `mapstructure:"-"` // required
	Detector              Detector             `mapstructure:"-"`
	CacheManager          cache.Manager        `mapstructure:"-"`
	EncodingHandler       encoding.Handler     `mapstructure:"-"`
	Source                FileSource           `mapstructure:"-"`
	MeterProvider         metric.MeterProvider `mapstructure:"-"`
	DispatchWarnThreshold time.Duration        `mapstructure:"-"`
}

// Validate checks option values that do not depend on the filesystem.
func (o *Options) Validate() error {
	if o.Logger == nil {
		return fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if o.InputPath == "" && o.Source == nil {
		return fmt.Errorf("%w: input path cannot be empty", ErrConfigValidation)
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency cannot be negative", ErrConfigValidation)
	}
	if o.MaxContentBytes < 0 || o.ShebangMaxLine < 0 || o.LargeFileThresholdMB < 0 {
		return fmt.Errorf("%w: size limits cannot be negative", ErrConfigValidation)
	}
	switch o.OnErrorMode {
	case "", OnErrorContinue, OnErrorStop:
	default:
		return fmt.Errorf("%w: invalid onError mode %q", ErrConfigValidation, o.OnErrorMode)
	}
	switch o.BinaryMode {
	case "", BinarySkip, BinaryDetect, BinaryError:
	default:
		return fmt.Errorf("%w: invalid binaryMode %q", ErrConfigValidation, o.BinaryMode)
	}
	switch o.LargeFileMode {
	case "", LargeFileSkip, LargeFileDetect, LargeFileError:
	default:
		return fmt.Errorf("%w: invalid largeFileMode %q", ErrConfigValidation, o.LargeFileMode)
	}
	switch o.OutputFormat {
	case "", OutputFormatText, OutputFormatJSON, OutputFormatCSV:
	default:
		return fmt.Errorf("%w: invalid outputFormat %q", ErrConfigValidation, o.OutputFormat)
	}
	if _, err := detect.ParseShebangPrecedence(o.ShebangPrecedence); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	if _, err := o.casePolicy(); err != nil {
		return err
	}
	if err := util.ValidateIgnorePatterns(o.IgnorePatterns); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	if o.DefaultEncoding != "" && !encoding.ValidEncoding(o.DefaultEncoding) {
		return fmt.Errorf("%w: unknown default encoding %q", ErrConfigValidation, o.DefaultEncoding)
	}
	return nil
}

func (o *Options) casePolicy() (registry.CasePolicy, error) {
	var p registry.CasePolicy
	var err error
	if p.Extension, err = registry.ParseCase(o.ExtensionCase); err != nil {
		return p, fmt.Errorf("%w: extensionCase: %w", ErrConfigValidation, err)
	}
	if p.Filename, err = registry.ParseCase(o.FilenameCase); err != nil {
		return p, fmt.Errorf("%w: filenameCase: %w", ErrConfigValidation, err)
	}
	return p, nil
}

// NewDetector builds the detector the options describe: the selected
// registry with case policy and language mappings applied.
func (o *Options) NewDetector() (*detect.Detector, error) {
	policy, err := o.casePolicy()
	if err != nil {
		return nil, err
	}
	ref := o.Registry
	if ref == "" {
		ref = DefaultRegistry
	}
	reg, err := registry.Load(ref, policy)
	if err != nil {
		return nil, err
	}
	if reg, err = reg.WithOverrides(o.LanguageMappings); err != nil {
		return nil, fmt.Errorf("%w: languageMappings: %w", ErrConfigValidation, err)
	}
	precedence, err := detect.ParseShebangPrecedence(o.ShebangPrecedence)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	return detect.New(reg, detect.Options{
		MaxContentBytes:   o.MaxContentBytes,
		ShebangPrecedence: precedence,
		ShebangMaxLine:    o.ShebangMaxLine,
		Workers:           o.Concurrency,
		Logger:            o.Logger,
	})
}
