// Package encoding sniffs binary content and converts text to UTF-8 before
// detection.
package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	sniffLen      = 512
	checkLen      = 1024
	nullThreshold = 0.15
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

var textMIMETypes = map[string]bool{
	"application/json":         true,
	"application/xml":          true,
	"application/javascript":   true,
	"application/ecmascript":   true,
	"application/x-javascript": true,
	"application/octet-stream": true,
	"image/svg+xml":            true,
}

// Decoded is content converted to UTF-8 with the encoding it was read as.
type Decoded struct {
	Content  []byte
	Encoding string
	Certain  bool
}

// Handler converts file content to UTF-8 and flags binary data.
type Handler interface {
	Decode(content []byte) (Decoded, error)
	IsBinary(content []byte) bool
}

type charsetHandler struct {
	defaultEncoding string
}

// NewHandler returns a Handler backed by x/net/html/charset. defaultEncoding
// is used when sniffing is uncertain; empty keeps the sniffed guess.
func NewHandler(defaultEncoding string) Handler {
	return &charsetHandler{defaultEncoding: defaultEncoding}
}

// ValidEncoding reports whether name is a known IANA encoding label.
func ValidEncoding(name string) bool {
	enc, _ := charset.Lookup(name)
	return enc != nil
}

func (h *charsetHandler) Decode(content []byte) (Decoded, error) {
	if len(content) == 0 {
		return Decoded{Content: content, Encoding: "utf-8", Certain: true}, nil
	}
	enc, name, certain := charset.DetermineEncoding(content, "")
	if !certain && utf8.Valid(content) {
		return Decoded{Content: content, Encoding: "utf-8"}, nil
	}
	if !certain && h.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.defaultEncoding); fallback != nil {
			enc, name, certain = fallback, fallbackName, true
		}
	}
	if name == "" {
		name = "utf-8"
	}
	if enc == nil || name == "utf-8" {
		return Decoded{Content: bytes.TrimPrefix(content, bomUTF8), Encoding: name, Certain: certain}, nil
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return Decoded{Content: content, Encoding: name, Certain: certain}, fmt.Errorf("decode from %s: %w", name, err)
	}
	return Decoded{Content: bytes.TrimPrefix(out, bomUTF8), Encoding: name, Certain: certain}, nil
}

func (h *charsetHandler) IsBinary(content []byte) bool { return IsBinary(content) }

// IsBinary reports whether content looks like binary data: a non-text MIME
// sniff, or more than 15% NUL bytes in the first KiB. Content opening with a
// UTF-16 byte order mark is text.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	if bytes.HasPrefix(content, bomUTF16LE) || bytes.HasPrefix(content, bomUTF16BE) {
		return false
	}
	if !textMIME(http.DetectContentType(content[:min(len(content), sniffLen)])) {
		return true
	}
	head := content[:min(len(content), checkLen)]
	return float64(bytes.Count(head, []byte{0}))/float64(len(head)) > nullThreshold
}

func textMIME(contentType string) bool {
	mime := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if strings.HasPrefix(mime, "text/") || textMIMETypes[mime] {
		return true
	}
	return strings.HasSuffix(mime, "+xml") || strings.HasSuffix(mime, "+json")
}
