// Package cli runs a configured detection: it wires the terminal hooks, the
// git integration and metrics around polyglot.DetectFiles and writes the
// report.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/stackvity/stack-polyglot/internal/cli/git"
	"github.com/stackvity/stack-polyglot/internal/cli/hooks"
	"github.com/stackvity/stack-polyglot/internal/cli/ui"
	"github.com/stackvity/stack-polyglot/pkg/polyglot"
	"github.com/stackvity/stack-polyglot/pkg/util"
)

// Streams are the terminal endpoints of a run. The report and explain
// traces go to Out; progress, the TUI and logs go to Err. TTY reports
// whether Err is an interactive terminal.
type Streams struct {
	Out io.Writer
	Err io.Writer
	TTY bool
}

// Run executes one detection, or keeps re-running it on changes when
// opts.WatchMode is set, until ctx is cancelled.
func Run(ctx context.Context, opts polyglot.Options, logger *slog.Logger, streams Streams) error {
	if opts.Detector == nil {
		det, err := opts.NewDetector()
		if err != nil {
			logger.Error("Failed to build detector", slog.Any("error", err))
			return err
		}
		opts.Detector = det
	}
	r := &runner{opts: opts, logger: logger, streams: streams, git: git.NewClient(opts.Logger)}
	if opts.WatchMode {
		return r.watch(ctx)
	}
	_, err := r.runOnce(ctx)
	return err
}

type runner struct {
	opts    polyglot.Options
	logger  *slog.Logger
	streams Streams
	git     *git.Client
}

// runOnce performs a single pass and writes its report. Per-file failures
// are logged and counted in the report; only run-level failures are
// returned.
func (r *runner) runOnce(ctx context.Context) (polyglot.Report, error) {
	opts := r.opts
	start := time.Now()

	var reader *sdkmetric.ManualReader
	if opts.Metrics {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				r.logger.Debug("Meter provider shutdown failed", slog.Any("error", err))
			}
		}()
		opts.MeterProvider = provider
	}

	if opts.GitDiffMode != polyglot.GitDiffModeNone {
		changed, err := r.git.ChangedFiles(ctx, opts.InputPath, opts.GitDiffMode, opts.GitConfig.SinceRef)
		if err != nil {
			r.logger.Error("Git operation failed", slog.Any("error", err))
			return polyglot.Report{}, err
		}
		if len(changed) == 0 {
			r.logger.Warn("No changed files found for git diff mode", slog.String("mode", string(opts.GitDiffMode)))
		}
		opts.GitChangedFiles = changed
	}

	tuiRun := opts.TuiEnabled && r.streams.TTY && !opts.WatchMode && !opts.Verbose
	var (
		program *tea.Program
		tuiDone chan struct{}
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if tuiRun {
		program = tea.NewProgram(ui.NewModel(opts.AppVersion), tea.WithOutput(r.streams.Err), tea.WithContext(runCtx))
		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				r.logger.Error("TUI exited with error", slog.Any("error", err))
			}
			// Quitting the TUI early stops the run.
			cancel()
		}()
	}

	var (
		bar  hooks.ProgressBar
		prog hooks.TUIProgram
	)
	if tuiRun {
		prog = program
	} else if r.streams.TTY && !opts.Verbose {
		bar = hooks.NewProgressBar(r.streams.Err)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = hooks.NewCLIHooks(r.logger, tuiRun, opts.Verbose, prog, bar)
	}

	if opts.GitConfig.Ref != "" {
		opts.Source = r.git.NewRevisionSource(opts.InputPath, opts.GitConfig.Ref, opts.IgnorePatterns, opts.SkipVendored, opts.EventHooks)
	}

	report, err := polyglot.DetectFiles(runCtx, opts)

	if tuiRun {
		program.Quit()
		<-tuiDone
	}
	if err != nil {
		r.logger.Error("Detection run failed", slog.Any("error", err))
		return report, err
	}

	if err := r.writeReport(report); err != nil {
		r.logger.Error("Failed to write report", slog.Any("error", err))
		return report, err
	}
	if opts.Explain {
		if err := writeExplain(r.streams.Out, report); err != nil {
			return report, fmt.Errorf("%w: %w", polyglot.ErrReportWrite, err)
		}
	}
	if reader != nil {
		if err := writeMetricsSummary(ctx, r.streams.Out, reader); err != nil {
			r.logger.Warn("Failed to collect metrics", slog.Any("error", err))
		}
	}

	s := report.Summary
	r.logger.Info("Detection finished",
		slog.Int("scanned", s.TotalFilesScanned),
		slog.Int("detected", s.DetectedCount),
		slog.Int("unknown", s.UnknownCount),
		slog.Int("cached", s.CachedCount),
		slog.Int("skipped", s.SkippedCount),
		slog.Int("errors", s.ErrorCount),
		slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	if s.ErrorCount > 0 {
		r.logger.Warn("Some files failed; see the errors section of the report", slog.Int("errors", s.ErrorCount))
	}
	return report, nil
}

func (r *runner) writeReport(report polyglot.Report) error {
	if r.opts.OutputPath == "" {
		return report.Write(r.streams.Out, r.opts.OutputFormat, r.opts.Template)
	}
	err := util.WriteFileAtomic(r.opts.OutputPath, func(w io.Writer) error {
		return report.Write(w, r.opts.OutputFormat, r.opts.Template)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", polyglot.ErrReportWrite, err)
	}
	r.logger.Debug("Report written", slog.String("path", r.opts.OutputPath))
	return nil
}
