package detect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// DetectBatch detects every (filenames[i], contents[i]) pair in parallel and
// returns the results in input order. A cancelled context returns ctx.Err()
// and no results. A panic while detecting one file yields an unknown result
// for that file only.
func (d *Detector) DetectBatch(ctx context.Context, contents [][]byte, filenames []string) ([]Result, error) {
	if len(contents) != len(filenames) {
		return nil, fmt.Errorf("%w: %d contents but %d filenames", ErrInvalidBatchInput, len(contents), len(filenames))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workers := d.opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(contents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range contents {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.detectIsolated(filenames[i], contents[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Detector) detectIsolated(filename string, content []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic during detection",
				slog.String("file", filename),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			res = unknown
		}
	}()
	return d.Detect(filename, content)
}
