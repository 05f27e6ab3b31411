package detect

import (
	"fmt"
	"log/slog"
	"strings"
)

// ShebangPrecedence decides how a shebang combines with name-based candidates.
type ShebangPrecedence string

const (
	// MatcherFirst narrows the name candidates by the shebang. If the two
	// are disjoint the name candidates are kept.
	MatcherFirst ShebangPrecedence = "matcher"
	// ShebangFirst lets a disjoint shebang replace the name candidates.
	ShebangFirst ShebangPrecedence = "shebang"
)

const (
	// DefaultMaxContentBytes bounds how much content heuristics and the
	// classifier see.
	DefaultMaxContentBytes = 51200
	DefaultShebangMaxLine  = 256
)

// Options configures a Detector. Zero values select the defaults.
type Options struct {
	MaxContentBytes   int
	ShebangPrecedence ShebangPrecedence
	ShebangMaxLine    int
	// Workers bounds DetectBatch parallelism; zero means GOMAXPROCS.
	Workers int
	Logger  slog.Handler
}

// ParseShebangPrecedence accepts "matcher" or "shebang", case-insensitively.
// Empty selects MatcherFirst.
func ParseShebangPrecedence(s string) (ShebangPrecedence, error) {
	switch p := ShebangPrecedence(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MatcherFirst, nil
	case MatcherFirst, ShebangFirst:
		return p, nil
	default:
		return "", fmt.Errorf("%w: shebang precedence %q (want %q or %q)", ErrInvalidOptions, s, MatcherFirst, ShebangFirst)
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.MaxContentBytes < 0 {
		return o, fmt.Errorf("%w: max content bytes cannot be negative", ErrInvalidOptions)
	}
	if o.ShebangMaxLine < 0 {
		return o, fmt.Errorf("%w: shebang max line cannot be negative", ErrInvalidOptions)
	}
	if o.Workers < 0 {
		return o, fmt.Errorf("%w: workers cannot be negative", ErrInvalidOptions)
	}
	p, err := ParseShebangPrecedence(string(o.ShebangPrecedence))
	if err != nil {
		return o, err
	}
	o.ShebangPrecedence = p
	if o.MaxContentBytes == 0 {
		o.MaxContentBytes = DefaultMaxContentBytes
	}
	if o.ShebangMaxLine == 0 {
		o.ShebangMaxLine = DefaultShebangMaxLine
	}
	return o, nil
}
