// Package template renders the text form of a detection report.
package template

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"
)

//go:embed default.tmpl
var defaultTemplate string

// Count is one row of a histogram.
type Count struct {
	Name  string
	Count int
}

// SortedCounts orders a histogram by descending count, then name.
func SortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

var funcs = template.FuncMap{
	"sortedCounts": SortedCounts,
	"pct": func(n, total int) string {
		if total == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
	},
	"pad": func(width int, s string) string {
		if len(s) >= width {
			return s
		}
		return s + strings.Repeat(" ", width-len(s))
	},
	"formatDate": func(t time.Time, layout string) string {
		if layout == "" {
			layout = time.RFC3339
		}
		return t.Format(layout)
	},
}

// LoadDefault parses the embedded report template.
func LoadDefault() (*template.Template, error) {
	tmpl, err := template.New("default").Funcs(funcs).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing default template: %w", err)
	}
	return tmpl, nil
}

// LoadFile parses a user template. It has the same functions available as
// the default one.
func LoadFile(path string) (*template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %q: %w", path, err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing template %q: %w", path, err)
	}
	return tmpl, nil
}

// Execute renders data with tmpl, or with the default template when tmpl is
// nil.
func Execute(w io.Writer, tmpl *template.Template, data any) error {
	if tmpl == nil {
		var err error
		if tmpl, err = LoadDefault(); err != nil {
			return err
		}
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("template execution failed for %q: %w", tmpl.Name(), err)
	}
	return nil
}
