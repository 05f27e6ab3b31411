package classifier

import (
	"bytes"
	"path"
	"unicode/utf8"
)

// MaxTokenBytes bounds how much content the tokenizer reads.
const MaxTokenBytes = 100 * 1024

// maxTokenLength drops runs that are too long to be meaningful identifiers,
// such as base64 blobs or minified code.
const maxTokenLength = 64

var (
	blockComments = [][2]string{
		{"/*", "*/"},
		{"<!--", "-->"},
		{"{-", "-}"},
		{"(*", "*)"},
		{`"""`, `"""`},
		{"'''", "'''"},
	}
	lineComments = []string{"//", "--", "#", "%", ";;"}
)

// Tokenize splits content into the tokens the classifier scores. Comments,
// string literals and numbers are dropped; identifiers, operator runs,
// punctuation and SGML tags are kept. A leading shebang line becomes a single
// SHEBANG#!<interpreter> token.
func Tokenize(content []byte) []string {
	if len(content) > MaxTokenBytes {
		content = content[:MaxTokenBytes]
	}
	t := tokenizer{src: content}
	t.shebang()
	t.run()
	return t.tokens
}

type tokenizer struct {
	src    []byte
	pos    int
	tokens []string

	// noCloser has bit i set once blockComments[i] has no closer left in src.
	noCloser uint
	// unclosed maps a quote to the line end its last unterminated literal
	// ran into. Quotes of that kind before it cannot close either.
	unclosed map[byte]int
	// scanned counts bytes examined by lookahead searches.
	scanned int
}

func (t *tokenizer) emit(tok []byte) {
	if len(tok) == 0 || len(tok) > maxTokenLength {
		return
	}
	t.tokens = append(t.tokens, string(tok))
}

func (t *tokenizer) shebang() {
	if !bytes.HasPrefix(t.src, []byte("#!")) {
		return
	}
	line := t.src
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
		t.pos = i + 1
	} else {
		t.pos = len(line)
	}
	fields := bytes.Fields(line[2:])
	if len(fields) == 0 {
		return
	}
	name := path.Base(string(fields[0]))
	if name == "env" {
		name = ""
		for _, f := range fields[1:] {
			if f[0] == '-' || bytes.IndexByte(f, '=') > 0 {
				continue
			}
			name = path.Base(string(f))
			break
		}
	}
	if name != "" {
		t.emit([]byte("SHEBANG#!" + name))
	}
}

func (t *tokenizer) run() {
	src := t.src
	for t.pos < len(src) {
		c := src[t.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			t.pos++
		case t.blockComment():
		case t.lineComment():
		case c == '"' || c == '\'' || c == '`':
			t.stringLiteral(c)
		case isDigit(c):
			t.number()
		case c == '<' && t.sgmlTag():
		case isWordStart(c):
			start := t.pos
			for t.pos < len(src) && isWord(src[t.pos]) {
				t.pos++
			}
			t.emit(src[start:t.pos])
		case isOperator(c):
			start := t.pos
			for t.pos < len(src) && isOperator(src[t.pos]) {
				t.pos++
			}
			t.emit(src[start:t.pos])
		case isPunct(c):
			t.emit(src[t.pos : t.pos+1])
			t.pos++
		case c >= utf8.RuneSelf:
			_, size := utf8.DecodeRune(src[t.pos:])
			t.pos += size
		default:
			t.pos++
		}
	}
}

func (t *tokenizer) blockComment() bool {
	rest := t.src[t.pos:]
	for i, bc := range blockComments {
		if !bytes.HasPrefix(rest, []byte(bc[0])) {
			continue
		}
		if t.noCloser&(1<<i) != 0 {
			return false
		}
		body := rest[len(bc[0]):]
		end := bytes.Index(body, []byte(bc[1]))
		if end < 0 {
			// Unterminated openers such as C's (*fn) are ordinary code.
			t.scanned += len(body)
			t.noCloser |= 1 << i
			return false
		}
		t.scanned += end + len(bc[1])
		t.pos += len(bc[0]) + end + len(bc[1])
		return true
	}
	return false
}

// lineComment recognises a comment marker followed by whitespace, which keeps
// tokens such as #include, --flag or %macro intact.
func (t *tokenizer) lineComment() bool {
	rest := t.src[t.pos:]
	for _, marker := range lineComments {
		if !bytes.HasPrefix(rest, []byte(marker)) {
			continue
		}
		next := len(marker)
		if marker != "//" && next < len(rest) && !isSpace(rest[next]) {
			continue
		}
		if end := bytes.IndexByte(rest, '\n'); end >= 0 {
			t.pos += end
		} else {
			t.pos = len(t.src)
		}
		return true
	}
	return false
}

// stringLiteral skips a quoted literal on the current line. An unterminated
// quote is skipped on its own.
func (t *tokenizer) stringLiteral(quote byte) {
	if t.pos < t.unclosed[quote] {
		t.pos++
		return
	}
	src := t.src
	end := len(src)
scan:
	for i := t.pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\n':
			end = i
			break scan
		case quote:
			t.scanned += i - t.pos
			t.pos = i + 1
			return
		}
	}
	t.scanned += end - t.pos
	if t.unclosed == nil {
		t.unclosed = make(map[byte]int, 3)
	}
	t.unclosed[quote] = end
	t.pos++
}

func (t *tokenizer) number() {
	for t.pos < len(t.src) && (isWord(t.src[t.pos]) || t.src[t.pos] == '.') {
		t.pos++
	}
}

// sgmlTag emits <name> or </name> for a tag opener, then name= for each
// attribute up to the closing '>'.
func (t *tokenizer) sgmlTag() bool {
	src := t.src
	i := t.pos + 1
	closing := false
	if i < len(src) && src[i] == '/' {
		closing = true
		i++
	}
	if i >= len(src) || !isLetter(src[i]) {
		return false
	}
	start := i
	for i < len(src) && (isWord(src[i]) || src[i] == ':' || src[i] == '-') {
		i++
	}
	name := src[start:i]
	if closing {
		t.emit([]byte("</" + string(name) + ">"))
	} else {
		t.emit([]byte("<" + string(name) + ">"))
	}
	for i < len(src) && src[i] != '>' && src[i] != '<' {
		switch {
		case src[i] == '"' || src[i] == '\'':
			q := src[i]
			i++
			for i < len(src) && src[i] != q {
				i++
			}
			i++
		case isLetter(src[i]):
			s := i
			for i < len(src) && (isWord(src[i]) || src[i] == ':' || src[i] == '-') {
				i++
			}
			if i < len(src) && src[i] == '=' {
				t.emit([]byte(string(src[s:i]) + "="))
				i++
			}
		default:
			i++
		}
	}
	if i < len(src) && src[i] == '>' {
		i++
	}
	t.pos = i
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isWordStart(c byte) bool { return isLetter(c) || c == '_' || c == '@' || c == '$' || c == '#' }

func isWord(c byte) bool { return isWordStart(c) || isDigit(c) }

func isOperator(c byte) bool {
	switch c {
	case '<', '>', '=', '!', '&', '|', '+', '-', '*', '/', '%', '^', '~', '?', ':':
		return true
	}
	return false
}

func isPunct(c byte) bool {
	switch c {
	case ';', ',', '(', ')', '{', '}', '[', ']', '.', '\\':
		return true
	}
	return false
}
