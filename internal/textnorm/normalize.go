// Package textnorm provides the text normalization shared by the
// classification and duplicate detection engines.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text and strips diacritical marks.
// Punctuation is kept: keyword matching is substring based and rarely cares about it.
func Normalize(text string) string {
	return strings.TrimSpace(stripDiacritics(strings.ToLower(text)))
}

// NormalizeForMatch is the duplicate-detection variant of Normalize. In addition to
// lowercasing and stripping diacritics it replaces punctuation and symbols with
// spaces and collapses runs of whitespace.
func NormalizeForMatch(text string) string {
	folded := stripDiacritics(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Words splits normalized text on whitespace and keeps only words longer than minLen runes.
func Words(normalized string, minLen int) []string {
	fields := strings.Fields(normalized)
	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > minLen {
			words = append(words, f)
		}
	}
	return words
}

func stripDiacritics(s string) string {
	if isASCII(s) {
		return s
	}

	// A fresh chain per call: transform.Chain keeps state and is not safe for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
