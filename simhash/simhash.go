// Package simhash computes 64-bit SimHash fingerprints. Two inputs that
// share most of their tokens end up a small Hamming distance apart.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Fingerprint computes the SimHash of text. Tokens are case-folded words
// with surrounding punctuation trimmed, so "Pad Thai," and "pad thai"
// fingerprint the same. Text without tokens fingerprints to 0.
func Fingerprint(text string) uint64 {
	return fromTokens(tokenize("", text))
}

// FingerprintFields computes one SimHash over several fields. Each token is
// tagged with its field position, so the same word in different fields
// counts as a different token. Empty fields contribute nothing.
func FingerprintFields(fields ...string) uint64 {
	var tokens []string
	for i, f := range fields {
		tokens = append(tokens, tokenize(string(rune('a'+i))+":", f)...)
	}
	return fromTokens(tokens)
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are at most threshold bits apart.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

func tokenize(prefix, text string) []string {
	words := strings.Fields(strings.ToLower(text))
	tokens := words[:0]
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w != "" {
			tokens = append(tokens, prefix+w)
		}
	}
	return tokens
}

func fromTokens(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	h := fnv.New64a()
	for _, tok := range tokens {
		h.Reset()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i, v := range vector {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}
