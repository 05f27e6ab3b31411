// Package shebang extracts the interpreter named on a script's #! line and
// maps it to candidate languages.
package shebang

import (
	"bytes"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/registry"
)

// MaxLineLength is the default bound on how much of the first line is read.
const MaxLineLength = 256

var (
	versionSuffix = regexp.MustCompile(`\.\d+$`)
	digitSuffix   = regexp.MustCompile(`\d+(\.\d+)*$`)
)

// Interpreter returns the interpreter named by the first line of content,
// reading at most maxLine bytes. It reports false when there is no usable
// shebang. A non-positive maxLine selects MaxLineLength.
func Interpreter(content []byte, maxLine int) (string, bool) {
	if maxLine <= 0 {
		maxLine = MaxLineLength
	}
	if !bytes.HasPrefix(content, []byte("#!")) {
		return "", false
	}
	line := content
	if len(line) > maxLine {
		line = line[:maxLine]
	}
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	} else if len(content) > maxLine {
		// the line continues past the bound
		return "", false
	}
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !utf8.Valid(line) || bytes.IndexByte(line, 0) >= 0 {
		return "", false
	}

	fields := strings.Fields(string(line[2:]))
	if len(fields) == 0 {
		return "", false
	}
	name := path.Base(fields[0])
	if name == "env" {
		name = ""
		for _, f := range fields[1:] {
			if strings.HasPrefix(f, "-") || strings.Contains(f, "=") {
				continue
			}
			name = path.Base(f)
			break
		}
	}
	if name == "" || name == "." || name == "/" {
		return "", false
	}
	return name, true
}

// Variants lists the lookup keys for an interpreter, most specific first:
// "python3.11" yields python3.11, python3, python.
func Variants(name string) []string {
	out := []string{name}
	if v := versionSuffix.ReplaceAllString(name, ""); v != name && v != "" {
		out = append(out, v)
	}
	if v := digitSuffix.ReplaceAllString(name, ""); v != "" && v != out[len(out)-1] && v != name {
		out = append(out, v)
	}
	return out
}

// Parser maps shebang interpreters to registry languages.
type Parser struct {
	reg     *registry.Registry
	maxLine int
}

func New(reg *registry.Registry, maxLine int) *Parser {
	return &Parser{reg: reg, maxLine: maxLine}
}

// Candidates returns the languages of the interpreter named in content, trying
// progressively less specific names. Malformed input yields an empty set.
func (p *Parser) Candidates(content []byte) registry.CandidateSet {
	name, ok := Interpreter(content, p.maxLine)
	if !ok {
		return nil
	}
	for _, v := range Variants(name) {
		if set := p.reg.LookupByInterpreter(v); len(set) > 0 {
			return set
		}
	}
	return nil
}
