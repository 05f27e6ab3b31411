package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/detect"
)

// writeExplain prints the stage trace of every file that has one.
func writeExplain(w io.Writer, report polyglot.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range report.Files {
		if f.Trace == nil {
			continue
		}
		writeTrace(tw, f.Path, *f.Trace)
	}
	return tw.Flush()
}

// WriteTrace prints one detection trace: a result line followed by the
// candidates left after every stage that did work.
func WriteTrace(w io.Writer, path string, tr detect.Trace) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeTrace(tw, path, tr)
	return tw.Flush()
}

func writeTrace(tw *tabwriter.Writer, path string, tr detect.Trace) {
	lang := tr.Result.Language
	if lang == "" {
		lang = "(unknown)"
	}
	fmt.Fprintf(tw, "\n%s => %s [%s]\n", path, lang, tr.Result.Method)
	for _, st := range tr.Stages {
		var flags []string
		if st.Ambiguous {
			flags = append(flags, "ambiguous")
		}
		if st.Resolved {
			flags = append(flags, "resolved")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", st.Stage, strings.Join(st.Candidates, ", "), strings.Join(flags, " "))
	}
}
