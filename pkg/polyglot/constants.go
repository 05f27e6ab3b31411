package polyglot

import "time"

// Defaults for Options, shared with the CLI's viper defaults.
const (
	DefaultConcurrency          = 0
	DefaultCacheEnabled         = true
	DefaultTuiEnabled           = true
	DefaultOnErrorMode          = OnErrorContinue
	DefaultRegistry             = "builtin"
	DefaultShebangPrecedence    = "matcher"
	DefaultMaxContentBytes      = 51200
	DefaultShebangMaxLine       = 256
	DefaultSkipVendored         = true
	DefaultBinaryMode           = BinarySkip
	DefaultLargeFileThresholdMB = 10
	DefaultLargeFileMode        = LargeFileDetect
	DefaultOutputFormat         = OutputFormatText
	DefaultWatchDebounce        = 300 * time.Millisecond
	DefaultWatchDebounceString  = "300ms"
)

// ReportSchemaVersion is the version of the JSON report layout.
const ReportSchemaVersion = "1"

// IgnoreFileName holds extra ignore patterns, found by walking up from the
// input directory.
const IgnoreFileName = ".stackpolyglotignore"

// Cache status values of FileInfo.CacheStatus.
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusDisabled = "disabled"
)

// Skip reasons of SkippedInfo.Reason.
const (
	SkipReasonBinary     = "binary_file"
	SkipReasonLarge      = "large_file"
	SkipReasonIgnored    = "ignored_pattern"
	SkipReasonVendored   = "vendored"
	SkipReasonGitExclude = "excluded_by_git_diff"
)
