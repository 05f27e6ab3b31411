// Package hooks bridges engine progress callbacks to the terminal: the TUI,
// a progress bar, or plain logging.
package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
)

// FileDiscoveredMsg signals that the file source found a file.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a file's status. For detected and
// cached files Message is the language.
type FileStatusUpdateMsg struct {
	Path     string
	Status   polyglot.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg carries the final report of a run.
type RunCompleteMsg struct{ Report polyglot.Report }

// TUIProgram is the part of *tea.Program the hooks need.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar is the part of *progressbar.ProgressBar the hooks need.
type ProgressBar interface {
	Add(num int) error
	Describe(description string)
	Finish() error
}

// NewProgressBar returns a spinner-style bar that counts finished files.
// The total is unknown while the source is still walking.
func NewProgressBar(w io.Writer) ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Detecting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowIts(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(w) }),
	)
}

// CLIHooks implements polyglot.Hooks. Exactly one of the TUI, verbose
// logging or the progress bar receives events; failures are always logged.
type CLIHooks struct {
	logger      *slog.Logger
	tuiEnabled  bool
	verbose     bool
	tuiProgram  TUIProgram
	progressBar ProgressBar

	mu sync.Mutex
}

// NewCLIHooks creates hooks for one run. tuiProg is used when tuiEnabled;
// progBar may be nil to disable the bar.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verbose bool, tuiProg TUIProgram, progBar ProgressBar) *CLIHooks {
	if tuiProg == nil {
		tuiEnabled = false
	}
	return &CLIHooks{
		logger:      logger,
		tuiEnabled:  tuiEnabled,
		verbose:     verbose,
		tuiProgram:  tuiProg,
		progressBar: progBar,
	}
}

func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
	} else if h.verbose {
		h.logger.Debug("File discovered", slog.String("path", path))
	}
	return nil
}

// OnFileStatusUpdate is called concurrently from the engine's workers.
func (h *CLIHooks) OnFileStatusUpdate(path string, status polyglot.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStatusUpdateMsg{Path: path, Status: status, Message: message, Duration: duration})
		return nil
	}

	if h.verbose {
		level := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []any{slog.String("path", path), slog.String("status", string(status))}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		switch status {
		case polyglot.StatusSuccess, polyglot.StatusCached:
			level = slog.LevelInfo
			attrs = append(attrs, slog.String("language", message))
		case polyglot.StatusSkipped:
			level = slog.LevelInfo
			attrs = append(attrs, slog.String("reason", message))
		case polyglot.StatusFailed:
			level = slog.LevelError
			logMsg = "File processing failed"
			attrs = append(attrs, slog.String("error", message))
		}
		h.logger.Log(context.Background(), level, logMsg, attrs...)
		return nil
	}

	if status == polyglot.StatusFailed {
		h.logger.Error("File processing failed", slog.String("path", path), slog.String("error", message))
	}
	if h.progressBar != nil && isFinalStatus(status) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if status == polyglot.StatusSuccess || status == polyglot.StatusCached {
			h.progressBar.Describe("Detecting: " + message)
		}
		_ = h.progressBar.Add(1)
	}
	return nil
}

func (h *CLIHooks) OnRunComplete(report polyglot.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	if h.progressBar != nil {
		h.mu.Lock()
		h.progressBar.Describe(fmt.Sprintf("Detected %d files", report.Summary.DetectedCount))
		_ = h.progressBar.Finish()
		h.mu.Unlock()
	}
	return nil
}

func isFinalStatus(s polyglot.Status) bool {
	switch s {
	case polyglot.StatusSuccess, polyglot.StatusFailed, polyglot.StatusSkipped, polyglot.StatusCached:
		return true
	}
	return false
}
