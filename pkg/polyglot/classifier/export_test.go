package classifier

// TokenizeScanned tokenizes like Tokenize and also reports how many bytes the
// lookahead searches examined.
func TokenizeScanned(content []byte) ([]string, int) {
	t := tokenizer{src: content}
	t.shebang()
	t.run()
	return t.tokens, t.scanned
}
