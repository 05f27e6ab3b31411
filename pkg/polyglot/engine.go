package polyglot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/cache"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/detect"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/encoding"
)

// Engine orchestrates a directory run: source, worker pool, processor and
// result aggregation.
type Engine struct {
	opts          *Options
	logger        *slog.Logger
	detector      Detector
	cacheManager  cache.Manager
	source        FileSource
	processor     *FileProcessor
	aggregator    *reportAggregator
	ctx           context.Context
	cancelFunc    context.CancelFunc
	concurrency   int
	totalScanned  atomic.Int64
	fatalOccurred atomic.Bool
}

// NewEngine validates opts and resolves every dependency that was not
// injected: detector, encoding handler, file source and cache manager.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	applyDefaults(&opts)
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.Detector == nil {
		det, err := opts.NewDetector()
		if err != nil {
			return nil, err
		}
		opts.Detector = det
	}
	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewHandler(opts.DefaultEncoding)
	}

	if opts.Source == nil {
		info, err := os.Stat(opts.InputPath)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot access input path '%s': %w", ErrConfigValidation, opts.InputPath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: input path '%s' is not a directory", ErrConfigValidation, opts.InputPath)
		}
		walker, err := NewWalker(&opts, opts.Logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
		}
		opts.Source = walker
	}

	cacheMgr := resolveCache(&opts, logger)
	opts.CacheManager = cacheMgr

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		opts.Concurrency = concurrency
		logger.Debug("Concurrency auto-detected", slog.Int("count", concurrency))
	}

	engineCtx, cancel := context.WithCancel(ctx)
	e := &Engine{
		opts:         &opts,
		logger:       logger,
		detector:     opts.Detector,
		cacheManager: cacheMgr,
		source:       opts.Source,
		aggregator:   newReportAggregator(),
		ctx:          engineCtx,
		cancelFunc:   cancel,
		concurrency:  concurrency,
	}
	e.processor = NewFileProcessor(e.opts, opts.Logger, opts.Detector, cacheMgr, opts.EncodingHandler,
		newEngineMetrics(opts.MeterProvider, logger))
	return e, nil
}

func applyDefaults(opts *Options) {
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.OnErrorMode == "" {
		opts.OnErrorMode = DefaultOnErrorMode
	}
	if opts.BinaryMode == "" {
		opts.BinaryMode = DefaultBinaryMode
	}
	if opts.LargeFileMode == "" {
		opts.LargeFileMode = DefaultLargeFileMode
	}
	if opts.LargeFileThreshold == 0 && opts.LargeFileThresholdMB > 0 {
		opts.LargeFileThreshold = opts.LargeFileThresholdMB * 1024 * 1024
	}
	if opts.GitDiffMode == "" {
		opts.GitDiffMode = GitDiffModeNone
	}
}

// resolveCache picks the injected manager, a file manager under the input
// root, or a no-op when caching is off.
func resolveCache(opts *Options, logger *slog.Logger) cache.Manager {
	if opts.CacheManager != nil {
		logger.Debug("Using provided cache manager")
		return opts.CacheManager
	}
	if !opts.CacheEnabled {
		logger.Debug("Cache explicitly disabled")
		return cache.NoOp{}
	}
	if opts.CacheFilePath == "" {
		if opts.InputPath == "" {
			logger.Warn("Cache enabled but no cache path could be determined; caching disabled")
			opts.CacheEnabled = false
			return cache.NoOp{}
		}
		opts.CacheFilePath = filepath.Join(opts.InputPath, cache.FileName)
	}
	if opts.ClearCache {
		if err := os.Remove(opts.CacheFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to clear cache file", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
		}
	}
	appVersion := opts.AppVersion
	if appVersion == "" {
		appVersion = "dev"
	}
	mgr := cache.NewFileManager(opts.Logger, appVersion, cache.FormatGob)
	if err := mgr.Load(opts.CacheFilePath); err != nil {
		if errors.Is(err, cache.ErrCacheLoad) {
			logger.Warn("Failed to load cache file, treating every file as a miss", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
		} else {
			logger.Error("Critical error reading cache file, proceeding without cache", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
			opts.CacheEnabled = false
			return cache.NoOp{}
		}
	}
	return mgr
}

// Run processes every file the source emits and returns the sorted report.
// The error is non-nil when the run was cancelled, the source failed, or a
// file failed under OnErrorMode "stop"; the partial report is still returned.
func (e *Engine) Run() (report Report, finalErr error) {
	startTime := time.Now()
	e.logger.Info("Starting detection run", slog.Int("concurrency", e.concurrency), slog.Bool("cacheEnabled", e.opts.CacheEnabled))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic recovered during engine run", slog.Any("panicValue", r), slog.String("stack", string(debug.Stack())))
			e.fatalOccurred.Store(true)
			if finalErr == nil {
				finalErr = fmt.Errorf("panic during execution: %v", r)
			}
		}
		e.cancelFunc()

		if e.opts.CacheEnabled {
			e.logger.Debug("Persisting cache index", slog.String("path", e.opts.CacheFilePath))
			if persistErr := e.cacheManager.Persist(e.opts.CacheFilePath); persistErr != nil {
				e.logger.Error("Failed to persist cache index", slog.String("path", e.opts.CacheFilePath), slog.String("error", persistErr.Error()))
				if finalErr == nil {
					finalErr = persistErr
				}
			}
		}

		report = e.report(startTime)
		e.logger.Info("Detection run finished",
			slog.Duration("duration", time.Since(startTime)),
			slog.Int("detected", report.Summary.DetectedCount),
			slog.Int("unknown", report.Summary.UnknownCount),
			slog.Int("cached", report.Summary.CachedCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Int("errors", report.Summary.ErrorCount),
			slog.Bool("fatalErrorOccurred", report.Summary.FatalErrorOccurred),
		)
		if hookErr := e.opts.EventHooks.OnRunComplete(report); hookErr != nil {
			e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
	}()

	files := make(chan File, e.concurrency)
	results := make(chan any, e.concurrency)
	var wg sync.WaitGroup
	e.startWorkers(&wg, files, results)

	aggregatorDone := make(chan struct{})
	go e.aggregateResults(results, aggregatorDone)

	walkErr := e.walk(files)
	wg.Wait()
	close(results)
	<-aggregatorDone

	switch {
	case walkErr != nil && !isCancellation(walkErr):
		e.fatalOccurred.Store(true)
		return report, fmt.Errorf("file source failed: %w", walkErr)
	case e.fatalOccurred.Load():
		if first := e.aggregator.firstFatalError(); first != nil {
			return report, fmt.Errorf("processing stopped due to fatal error: %w", first)
		}
		if err := e.ctx.Err(); err != nil {
			return report, err
		}
		return report, errors.New("processing stopped due to fatal error")
	case e.ctx.Err() != nil:
		e.fatalOccurred.Store(true)
		e.logger.Info("Detection run cancelled", slog.String("reason", e.ctx.Err().Error()))
		return report, e.ctx.Err()
	}
	return report, nil
}

// walk feeds the worker channel from the source and closes it when done.
func (e *Engine) walk(files chan<- File) error {
	defer close(files)
	err := e.source.Walk(e.ctx, func(f File) error {
		start := time.Now()
		select {
		case files <- f:
		case <-e.ctx.Done():
			return e.ctx.Err()
		}
		if wait := time.Since(start); e.opts.DispatchWarnThreshold > 0 && wait > e.opts.DispatchWarnThreshold {
			e.logger.Warn("Workers saturated, dispatch blocked", slog.String("path", f.Path), slog.Duration("wait", wait))
		}
		return nil
	})
	if err != nil && !isCancellation(err) {
		e.logger.Error("File source failed", slog.String("error", err.Error()))
		e.cancelFunc()
	}
	return err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) startWorkers(wg *sync.WaitGroup, files <-chan File, results chan<- any) {
	e.logger.Debug("Starting worker pool", slog.Int("count", e.concurrency))
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.worker(wg, i, files, results)
	}
}

func (e *Engine) worker(wg *sync.WaitGroup, workerID int, files <-chan File, results chan<- any) {
	defer wg.Done()
	wLogger := e.logger.With(slog.Int("workerID", workerID))
	for {
		select {
		case f, ok := <-files:
			if !ok {
				return
			}
			results <- e.processOne(wLogger, f)
		case <-e.ctx.Done():
			return
		}
	}
}

// processOne runs the processor on f and turns a panic or error into an
// ErrorInfo. Under OnErrorMode "stop" the first failure cancels the run.
func (e *Engine) processOne(wLogger *slog.Logger, f File) (out any) {
	stop := e.opts.OnErrorMode == OnErrorStop
	defer func() {
		if r := recover(); r != nil {
			wLogger.Error("Panic recovered while processing file",
				slog.String("path", f.Path), slog.Any("panicValue", r), slog.String("stack", string(debug.Stack())))
			out = ErrorInfo{Path: f.Path, Error: fmt.Sprintf("panic: %v", r), IsFatal: stop}
			if stop {
				e.signalFatal()
			}
		}
	}()

	result, status, err := e.processor.Process(e.ctx, f)
	if err == nil {
		return result
	}
	fatal := stop && status == StatusFailed && !isCancellation(err)
	info, ok := result.(ErrorInfo)
	if !ok {
		info = ErrorInfo{Path: f.Path, Error: err.Error()}
	}
	info.IsFatal = fatal
	if fatal {
		wLogger.Info("Fatal error, signalling stop", slog.String("path", f.Path), slog.String("error", err.Error()))
		e.signalFatal()
	}
	return info
}

func (e *Engine) signalFatal() {
	if e.fatalOccurred.CompareAndSwap(false, true) {
		e.cancelFunc()
	}
}

func (e *Engine) aggregateResults(results <-chan any, done chan<- struct{}) {
	defer close(done)
	var n int64
	for result := range results {
		n++
		switch r := result.(type) {
		case FileInfo:
			e.aggregator.addFile(r)
		case SkippedInfo:
			e.aggregator.addSkipped(r)
		case ErrorInfo:
			e.aggregator.addError(r)
		default:
			e.logger.Warn("Aggregator received unknown result type", slog.String("type", fmt.Sprintf("%T", result)))
		}
	}
	e.totalScanned.Store(n)
}

func (e *Engine) report(startTime time.Time) Report {
	r := e.aggregator.snapshot()
	r.Summary = ReportSummary{
		InputPath:          e.opts.InputPath,
		ProfileUsed:        e.opts.ProfileName,
		ConfigFilePath:     e.opts.ConfigFilePath,
		TotalFilesScanned:  int(e.totalScanned.Load()),
		FatalErrorOccurred: e.fatalOccurred.Load(),
		DurationSeconds:    time.Since(startTime).Seconds(),
		CacheEnabled:       e.opts.CacheEnabled,
		Concurrency:        e.concurrency,
		Timestamp:          time.Now().UTC(),
		SchemaVersion:      ReportSchemaVersion,
	}
	if d, ok := e.detector.(*detect.Detector); ok {
		r.Summary.Registry = d.Registry().Source()
		r.Summary.RegistryVersion = d.Registry().Version()
	}
	r.sort()
	return r
}

// reportAggregator collects results during the run.
type reportAggregator struct {
	mu      sync.Mutex
	files   []FileInfo
	skipped []SkippedInfo
	errors  []ErrorInfo
}

func newReportAggregator() *reportAggregator {
	return &reportAggregator{
		files:   make([]FileInfo, 0, 512),
		skipped: make([]SkippedInfo, 0, 64),
		errors:  make([]ErrorInfo, 0, 16),
	}
}

func (a *reportAggregator) addFile(info FileInfo) {
	a.mu.Lock()
	a.files = append(a.files, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	a.skipped = append(a.skipped, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addError(info ErrorInfo) {
	a.mu.Lock()
	a.errors = append(a.errors, info)
	a.mu.Unlock()
}

func (a *reportAggregator) firstFatalError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.errors {
		if e.IsFatal {
			return fmt.Errorf("fatal error processing file '%s': %s", e.Path, e.Error)
		}
	}
	return nil
}

// snapshot copies the collected rows.
func (a *reportAggregator) snapshot() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Report{
		Files:   append([]FileInfo(nil), a.files...),
		Skipped: append([]SkippedInfo(nil), a.skipped...),
		Errors:  append([]ErrorInfo(nil), a.errors...),
	}
}
