// Package textnorm canonicalizes free-text catalog names so that spelling
// variants of the same entity compare equal.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var abbreviations = map[string]string{
	"st": "saint",
	"ft": "fort",
	"mt": "mount",
}

// dropped without leaving a token boundary: "O'Neil" -> "oneil", "J.D." -> "jd".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '.', '`':
		return true
	}
	return false
}

// Normalize folds case, strips diacritics and punctuation, expands common
// abbreviations and collapses whitespace. The result is a space-separated
// token string.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '&':
			b.WriteString(" and ")
		case isJoiner(r):
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	for i, f := range fields {
		if full, ok := abbreviations[f]; ok {
			fields[i] = full
		}
	}
	return strings.Join(fields, " ")
}

// Tokens returns the normalized tokens of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// NumericTokens returns the tokens of an already normalized string that
// contain a digit, e.g. years and card numbers.
func NumericTokens(normalized string) []string {
	var out []string
	for _, f := range strings.Fields(normalized) {
		if strings.IndexFunc(f, unicode.IsDigit) >= 0 {
			out = append(out, f)
		}
	}
	return out
}

// Slug builds a URL-safe natural key: "2024 Topps Chrome" -> "2024-topps-chrome".
func Slug(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "-")
}
