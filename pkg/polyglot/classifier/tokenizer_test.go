package classifier_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stackvity/stack-polyglot/pkg/polyglot/classifier"
)

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "shebang with env",
			content: "#!/usr/bin/env python3\nimport os\n",
			want:    []string{"SHEBANG#!python3", "import", "os"},
		},
		{
			name:    "env flags skipped",
			content: "#!/usr/bin/env -S LANG=C perl -w\n",
			want:    []string{"SHEBANG#!perl"},
		},
		{
			name:    "strings and numbers dropped",
			content: `x = "hello" + 'c' + 42 + 0x1F;`,
			want:    []string{"x", "=", "+", "+", "+", ";"},
		},
		{
			name:    "line comments need trailing space",
			content: "#include <stdio.h>\n# a comment\n// another\nint y; -- sql\n",
			want:    []string{"#include", "<stdio>", "int", "y", ";"},
		},
		{
			name:    "block comments",
			content: "/* header */ fn main() {} <!-- html --> {- haskell -}",
			want:    []string{"fn", "main", "(", ")", "{", "}"},
		},
		{
			name:    "unterminated block opener is code",
			content: "(*fn)(x);",
			want:    []string{"(", "*", "fn", ")", "(", "x", ")", ";"},
		},
		{
			name:    "repeated unterminated openers",
			content: "(*(*(*",
			want:    []string{"(", "*", "(", "*", "(", "*"},
		},
		{
			name:    "unterminated quote skipped on its own",
			content: "it's \"fine\nnext 'x'",
			want:    []string{"it", "s", "fine", "next"},
		},
		{
			name:    "escaped quotes never close",
			content: `"\"\"\`,
			want:    []string{`\`, `\`, `\`},
		},
		{
			name:    "sgml tags and attributes",
			content: `<a href="x" class='y'>link</a>`,
			want:    []string{"<a>", "href=", "class=", "link", "</a>"},
		},
		{
			name:    "operator runs",
			content: "a := b -> c <<= d",
			want:    []string{"a", ":=", "b", "->", "c", "<<=", "d"},
		},
		{
			name:    "non-ascii skipped",
			content: "héllo wörld",
			want:    []string{"h", "llo", "w", "rld"},
		},
		{
			name:    "empty",
			content: "",
			want:    nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifier.Tokenize([]byte(tc.content)))
		})
	}
}

func TestTokenizeBounded(t *testing.T) {
	long := make([]byte, classifier.MaxTokenBytes*2)
	for i := range long {
		long[i] = 'a'
		if i%10 == 9 {
			long[i] = ' '
		}
	}
	tokens := classifier.Tokenize(long)
	assert.Len(t, tokens, classifier.MaxTokenBytes/10)
}

func TestTokenizeDropsOverlongRuns(t *testing.T) {
	blob := make([]byte, 500)
	for i := range blob {
		blob[i] = 'Q'
	}
	assert.Equal(t, []string{"x"}, classifier.Tokenize(append(blob, []byte(" x")...)))
}

func TestTokenizeLinearOnUnterminatedRuns(t *testing.T) {
	testCases := []struct {
		name    string
		content []byte
	}{
		{name: "block comment openers", content: bytes.Repeat([]byte("(*"), 25600)},
		{name: "escaped quotes", content: bytes.Repeat([]byte(`"\`), 25600)},
		{name: "mixed", content: bytes.Repeat([]byte(`/*'\"\{-`), 6400)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, scanned := classifier.TokenizeScanned(tc.content)
			assert.Equal(t, classifier.Tokenize(tc.content), tokens)
			assert.NotEmpty(t, tokens)
			assert.LessOrEqual(t, scanned, 4*len(tc.content), "lookahead must not rescan the input per opener")
		})
	}
}
