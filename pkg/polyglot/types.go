package polyglot

// Status is the processing state of one file, reported through Hooks.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusCached     Status = "cached"
)

// OnErrorMode decides whether a per-file error stops the run.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// BinaryMode selects how files sniffed as binary are handled.
type BinaryMode string

const (
	BinarySkip BinaryMode = "skip"
	// BinaryDetect still runs detection; only name-based stages can succeed.
	BinaryDetect BinaryMode = "detect"
	BinaryError  BinaryMode = "error"
)

// LargeFileMode selects how files above the size threshold are handled.
type LargeFileMode string

const (
	LargeFileSkip LargeFileMode = "skip"
	// LargeFileDetect detects by name only, without reading content.
	LargeFileDetect LargeFileMode = "detect"
	LargeFileError  LargeFileMode = "error"
)

// OutputFormat is the rendering of the final report.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatCSV  OutputFormat = "csv"
)

// GitDiffMode restricts a run to files changed in git.
type GitDiffMode string

const (
	GitDiffModeNone     GitDiffMode = "none"
	GitDiffModeDiffOnly GitDiffMode = "diffOnly"
	GitDiffModeSince    GitDiffMode = "since"
)
