package polyglot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/template"
	"time"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/detect"
	tpl "github.com/stackvity/stack-polyglot/pkg/polyglot/template"
)

// Report summarizes one DetectFiles run.
type Report struct {
	Summary ReportSummary `json:"summary"`
	Files   []FileInfo    `json:"files"`
	Skipped []SkippedInfo `json:"skippedFiles"`
	Errors  []ErrorInfo   `json:"errors"`
}

// ReportSummary holds the aggregated counts of a run.
type ReportSummary struct {
	InputPath          string         `json:"inputPath"`
	Registry           string         `json:"registry"`
	RegistryVersion    string         `json:"registryVersion,omitempty"`
	ProfileUsed        string         `json:"profileUsed,omitempty"`
	ConfigFilePath     string         `json:"configFilePath,omitempty"`
	TotalFilesScanned  int            `json:"totalFilesScanned"`
	DetectedCount      int            `json:"detectedCount"`
	UnknownCount       int            `json:"unknownCount"`
	CachedCount        int            `json:"cachedCount"`
	SkippedCount       int            `json:"skippedCount"`
	ErrorCount         int            `json:"errorCount"`
	Languages          map[string]int `json:"languages"`
	Methods            map[string]int `json:"methods"`
	FatalErrorOccurred bool           `json:"fatalError"`
	DurationSeconds    float64        `json:"durationSeconds"`
	CacheEnabled       bool           `json:"cacheEnabled"`
	Concurrency        int            `json:"concurrency"`
	Timestamp          time.Time      `json:"timestamp"`
	SchemaVersion      string         `json:"schemaVersion"`
}

// FileInfo is the detection of one file. Language is empty when undetected.
type FileInfo struct {
	Path          string        `json:"path"`
	Language      string        `json:"language"`
	Method        detect.Method `json:"method"`
	SizeBytes     int64         `json:"sizeBytes"`
	ModTime       time.Time     `json:"modTime"`
	Encoding      string        `json:"encoding,omitempty"`
	CacheStatus   string        `json:"cacheStatus"`
	DurationMs    int64         `json:"durationMs"`
	NameOnly      bool          `json:"nameOnly,omitempty"`
	Generated     bool          `json:"generated,omitempty"`
	Documentation bool          `json:"documentation,omitempty"`
	Trace         *detect.Trace `json:"trace,omitempty"`
}

// SkippedInfo is a file deliberately left out of detection.
type SkippedInfo struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// ErrorInfo is a per-file failure.
type ErrorInfo struct {
	Path    string `json:"path"`
	Error   string `json:"error"`
	IsFatal bool   `json:"isFatal"`
}

// sort orders every row list by path and recomputes the histograms.
func (r *Report) sort() {
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].Path < r.Files[j].Path })
	sort.Slice(r.Skipped, func(i, j int) bool { return r.Skipped[i].Path < r.Skipped[j].Path })
	sort.Slice(r.Errors, func(i, j int) bool { return r.Errors[i].Path < r.Errors[j].Path })

	s := &r.Summary
	s.Languages = make(map[string]int)
	s.Methods = make(map[string]int)
	s.DetectedCount, s.UnknownCount, s.CachedCount = 0, 0, 0
	for _, f := range r.Files {
		s.Methods[string(f.Method)]++
		if f.Language == "" {
			s.UnknownCount++
		} else {
			s.DetectedCount++
			s.Languages[f.Language]++
		}
		if f.CacheStatus == CacheStatusHit {
			s.CachedCount++
		}
	}
	s.SkippedCount = len(r.Skipped)
	s.ErrorCount = len(r.Errors)
}

// Write renders the report in the given format. tmpl overrides the text
// template; nil uses the embedded default.
func (r Report) Write(w io.Writer, format OutputFormat, tmpl *template.Template) error {
	var err error
	switch format {
	case "", OutputFormatText:
		err = tpl.Execute(w, tmpl, r)
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	case OutputFormatCSV:
		err = r.writeCSV(w)
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReportWrite, err)
	}
	return nil
}

func (r Report) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"path", "language", "method", "sizeBytes", "cacheStatus"}); err != nil {
		return err
	}
	for _, f := range r.Files {
		row := []string{f.Path, f.Language, string(f.Method), strconv.FormatInt(f.SizeBytes, 10), f.CacheStatus}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
