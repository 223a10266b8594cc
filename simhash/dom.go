package simhash

import (
	"strings"

	"golang.org/x/net/html"
)

// shingleSize is the n-gram width used over the structure token sequence.
const shingleSize = 3

// FingerprintDOM fingerprints the rendered structure of an HTML fragment.
// Text content is ignored. Besides tag names it sees data-testid values and
// whether an image has a source yet, so a virtualized list that mounts new
// items or finishes loading thumbnails fingerprints differently.
func FingerprintDOM(htmlStr string) uint64 {
	tokens := structureTokens(htmlStr)
	if len(tokens) == 0 {
		return 0
	}

	shingles := makeShingles(tokens, shingleSize)
	if len(shingles) == 0 {
		return fromTokens(tokens)
	}
	return fromTokens(shingles)
}

// structureTokens walks htmlStr and returns one token per opening tag.
func structureTokens(htmlStr string) []string {
	z := html.NewTokenizer(strings.NewReader(htmlStr))
	var tokens []string

	for {
		switch z.Next() {
		case html.ErrorToken:
			return tokens
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			tok := tag
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch {
				case string(key) == "data-testid" && len(val) > 0:
					tok += "#" + string(val)
				case string(key) == "src" && tag == "img" && len(val) > 0:
					tok += "+src"
				}
			}
			tokens = append(tokens, tok)
		}
	}
}

// makeShingles returns the n-grams of tokens, or nil when there are fewer
// than n tokens.
func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	shingles := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+n], "_"))
	}
	return shingles
}
