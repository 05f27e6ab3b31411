// Package polyglot detects the programming language of every file under a
// directory (or any other FileSource) and aggregates the results into a
// Report.
//
// Per-file detection lives in the detect package; this package adds the
// walking, caching, decoding, concurrency and reporting around it.
package polyglot

import (
	"context"
	"log/slog"
)

// DetectFiles is the main entry point of the library. The report is returned
// even when err is non-nil, holding whatever was processed before the run
// stopped.
func DetectFiles(ctx context.Context, opts Options) (Report, error) {
	engine, err := NewEngine(ctx, opts)
	if err != nil {
		if opts.Logger != nil {
			slog.New(opts.Logger).Error("Failed to initialize engine", slog.String("error", err.Error()))
		}
		return Report{}, err
	}
	return engine.Run()
}
