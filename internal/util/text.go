package util

import (
	"strings"
	"unicode"
)

// SanitizePostgresText strips invalid UTF-8 and NUL bytes which Postgres
// text columns reject.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// NormalizeText lowercases the input, collapses runs of whitespace into a
// single space and drops characters outside letters, digits and basic
// sentence punctuation.
func NormalizeText(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	lastSpace := true
	for _, r := range strings.ToLower(value) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(`.,!?-'"%`, r):
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// Tokenize splits text into lowercase word tokens, dropping punctuation.
func Tokenize(value string) []string {
	return strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TokenSet returns the set of distinct tokens in text.
func TokenSet(value string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(value) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard computes the Jaccard similarity of the token sets of a and b.
// Two empty inputs are considered identical.
func Jaccard(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(setA)+len(setB)-shared)
}
