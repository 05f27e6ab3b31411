package polyglot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-enry/go-enry/v2"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/cache"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/detect"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/encoding"
)

// FileProcessor runs the per-file pipeline: size and binary policy, cache
// lookup, decoding and detection.
type FileProcessor struct {
	opts         *Options
	logger       *slog.Logger
	hooks        Hooks
	detector     Detector
	cacheManager cache.Manager
	encoding     encoding.Handler
	metrics      *engineMetrics
	fingerprint  string
}

// NewFileProcessor creates a FileProcessor. The detector fingerprint is read
// once and keys every cache entry.
func NewFileProcessor(
	opts *Options,
	loggerHandler slog.Handler,
	det Detector,
	cacheMgr cache.Manager,
	encHandler encoding.Handler,
	metrics *engineMetrics,
) *FileProcessor {
	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	if cacheMgr == nil {
		cacheMgr = cache.NoOp{}
	}
	return &FileProcessor{
		opts:         opts,
		logger:       slog.New(loggerHandler).With(slog.String("component", "processor")),
		hooks:        hooks,
		detector:     det,
		cacheManager: cacheMgr,
		encoding:     encHandler,
		metrics:      metrics,
		fingerprint:  det.Fingerprint(),
	}
}

// Process returns a FileInfo, SkippedInfo or ErrorInfo for f. A non-nil error
// always comes with an ErrorInfo result and StatusFailed.
func (p *FileProcessor) Process(ctx context.Context, f File) (result any, status Status, err error) {
	start := time.Now()
	logArgs := []any{slog.String("path", f.Path)}

	defer func() {
		elapsed := time.Since(start)
		message := ""
		switch r := result.(type) {
		case FileInfo:
			message = r.Language
		case SkippedInfo:
			message = r.Details
		}
		if err != nil {
			status = StatusFailed
			message = err.Error()
			if _, ok := result.(ErrorInfo); !ok {
				result = ErrorInfo{Path: f.Path, Error: err.Error(), IsFatal: p.opts.OnErrorMode == OnErrorStop}
			}
		}
		level := slog.LevelDebug
		if status == StatusFailed {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "Processor finished file task",
			append(logArgs, slog.String("status", string(status)), slog.Duration("duration", elapsed))...)
		if hookErr := p.hooks.OnFileStatusUpdate(f.Path, status, message, elapsed); hookErr != nil {
			p.logger.Warn("Event hook OnFileStatusUpdate failed", append(logArgs, slog.String("error", hookErr.Error()))...)
		}
	}()

	if err := ctx.Err(); err != nil {
		return ErrorInfo{Path: f.Path, Error: err.Error(), IsFatal: true}, StatusFailed, err
	}

	info := FileInfo{
		Path:        f.Path,
		SizeBytes:   f.Size,
		ModTime:     f.ModTime,
		CacheStatus: CacheStatusDisabled,
	}

	if threshold := p.opts.LargeFileThreshold; threshold > 0 && f.Size > threshold {
		details := fmt.Sprintf("File size %d bytes > threshold %d bytes", f.Size, threshold)
		switch p.opts.LargeFileMode {
		case LargeFileSkip:
			p.logger.Info("Skipping large file", logArgs...)
			return SkippedInfo{Path: f.Path, Reason: SkipReasonLarge, Details: details}, StatusSkipped, nil
		case LargeFileError:
			return nil, StatusFailed, fmt.Errorf("%w: %s", ErrLargeFile, details)
		default:
			p.logger.Debug("Large file detected by name only", append(logArgs, slog.Int64("size", f.Size))...)
			info.NameOnly = true
			return p.finish(ctx, info, p.detect(f.Path, nil, &info), start), StatusSuccess, nil
		}
	}

	content, readErr := f.Read()
	if readErr != nil {
		if errors.Is(readErr, ErrStatFailed) {
			return nil, StatusFailed, readErr
		}
		return nil, StatusFailed, fmt.Errorf("%w: %w", ErrReadFailed, readErr)
	}

	contentHash := cache.ContentHash(content)
	if p.opts.CacheEnabled {
		info.CacheStatus = CacheStatusMiss
		if !p.opts.IgnoreCacheRead && !p.opts.Explain {
			if entry, ok := p.cacheManager.Check(f.Path, f.ModTime, contentHash, p.fingerprint); ok {
				p.logger.Debug("Cache hit", logArgs...)
				info.CacheStatus = CacheStatusHit
				info.Encoding = entry.Encoding
				p.flag(&info, content)
				cached := detect.Result{Language: entry.Language, Method: detect.Method(entry.Method)}
				return p.finish(ctx, info, cached, start), StatusCached, nil
			}
		}
	}

	text := content
	if p.encoding.IsBinary(content) {
		switch p.opts.BinaryMode {
		case BinaryError:
			return nil, StatusFailed, fmt.Errorf("%w: %s", ErrBinaryFile, f.Path)
		case BinaryDetect:
			p.logger.Debug("Detecting binary file", logArgs...)
		default:
			p.logger.Info("Skipping binary file", logArgs...)
			return SkippedInfo{Path: f.Path, Reason: SkipReasonBinary, Details: "Binary file detected"}, StatusSkipped, nil
		}
	} else {
		decoded, decErr := p.encoding.Decode(content)
		if decErr != nil {
			p.logger.Warn("Failed to decode content, detecting raw bytes", append(logArgs, slog.String("error", decErr.Error()))...)
		} else {
			text = decoded.Content
		}
		info.Encoding = decoded.Encoding
	}

	res := p.detect(f.Path, text, &info)
	p.flag(&info, content)

	if p.opts.CacheEnabled {
		entry := cache.Entry{
			ModTime:     f.ModTime,
			ContentHash: contentHash,
			Fingerprint: p.fingerprint,
			Language:    res.Language,
			Method:      string(res.Method),
			Encoding:    info.Encoding,
		}
		if updErr := p.cacheManager.Update(f.Path, entry); updErr != nil {
			p.logger.Warn("Failed to update cache", append(logArgs, slog.String("error", updErr.Error()))...)
		}
	}
	return p.finish(ctx, info, res, start), StatusSuccess, nil
}

func (p *FileProcessor) detect(path string, content []byte, info *FileInfo) detect.Result {
	if p.opts.Explain {
		tr := p.detector.Explain(path, content)
		info.Trace = &tr
		return tr.Result
	}
	return p.detector.Detect(path, content)
}

// flag marks generated and documentation files. Neither affects detection.
func (p *FileProcessor) flag(info *FileInfo, content []byte) {
	info.Documentation = enry.IsDocumentation(info.Path)
	if content != nil {
		info.Generated = enry.IsGenerated(info.Path, content)
	}
}

func (p *FileProcessor) finish(ctx context.Context, info FileInfo, res detect.Result, start time.Time) FileInfo {
	info.Language = res.Language
	info.Method = res.Method
	if info.NameOnly {
		p.flag(&info, nil)
	}
	elapsed := time.Since(start)
	info.DurationMs = elapsed.Milliseconds()
	p.metrics.record(ctx, info, elapsed)
	return info
}
