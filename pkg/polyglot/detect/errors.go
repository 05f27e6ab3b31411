package detect

import "errors"

var (
	// ErrInvalidBatchInput is returned by DetectBatch when contents and
	// filenames differ in length. No detection runs.
	ErrInvalidBatchInput = errors.New("invalid batch input")

	// ErrInvalidOptions reports an Options value New cannot use.
	ErrInvalidOptions = errors.New("invalid detector options")
)
