package polyglot

import "errors"

// Errors returned by DetectFiles or recorded in Report.Errors. Check with
// errors.Is.
var (
	// ErrConfigValidation reports unusable Options.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrReadFailed reports a file that could not be read after discovery.
	ErrReadFailed = errors.New("failed to read file")

	// ErrStatFailed reports a file whose size or modification time could not
	// be read.
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrBinaryFile reports a binary file under BinaryMode "error".
	ErrBinaryFile = errors.New("binary file encountered")

	// ErrLargeFile reports a file above the threshold under LargeFileMode
	// "error".
	ErrLargeFile = errors.New("large file encountered")

	// ErrGitOperation reports a failed git lookup.
	ErrGitOperation = errors.New("git operation failed")

	// ErrReportWrite reports a failure rendering or writing the report.
	ErrReportWrite = errors.New("failed to write report")
)
