// Package rule holds the content predicates used by heuristic disambiguation.
// Every Matcher is a pure function of the bytes it is given.
package rule

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher reports whether content satisfies a heuristic condition.
type Matcher interface {
	Match(content []byte) bool
}

// Pattern matches when its regular expression occurs anywhere in the content.
// Expressions are compiled in multi-line mode so ^ and $ anchor at line breaks.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// NewPattern compiles expr as an RE2 expression.
func NewPattern(expr string) (*Pattern, error) {
	re, err := regexp.Compile("(?m)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &Pattern{source: expr, re: re}, nil
}

// MustPattern is NewPattern for expressions known to be valid.
func MustPattern(expr string) *Pattern {
	p, err := NewPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) Match(content []byte) bool { return p.re.Match(content) }

func (p *Pattern) String() string { return p.source }

// NegativePattern matches when the wrapped matcher does not.
type NegativePattern struct {
	Inner Matcher
}

func (n NegativePattern) Match(content []byte) bool { return !n.Inner.Match(content) }

func (n NegativePattern) String() string { return "not(" + describe(n.Inner) + ")" }

// And matches when every member matches. An empty And always matches.
type And []Matcher

func (a And) Match(content []byte) bool {
	for _, m := range a {
		if !m.Match(content) {
			return false
		}
	}
	return true
}

func (a And) String() string { return join("and", a) }

// Or matches when any member matches. An empty Or never matches.
type Or []Matcher

func (o Or) Match(content []byte) bool {
	for _, m := range o {
		if m.Match(content) {
			return true
		}
	}
	return false
}

func (o Or) String() string { return join("or", o) }

// Always matches any content. It is the fallback rule of a disambiguation.
type Always struct{}

func (Always) Match([]byte) bool { return true }

func (Always) String() string { return "always" }

// Func adapts a plain function, such as a precompiled external rule.
type Func func(content []byte) bool

func (f Func) Match(content []byte) bool { return f(content) }

func (Func) String() string { return "func" }

// Describe renders a matcher tree for diagnostics.
func Describe(m Matcher) string { return describe(m) }

func describe(m Matcher) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", m)
}

func join(op string, ms []Matcher) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = describe(m)
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}
