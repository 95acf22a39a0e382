// Package textnorm provides diacritic-stripping normalization shared by
// the form/country matcher (internal/pipeline) and the fuzzy matcher
// (internal/fuzzy), built on golang.org/x/text's unicode/norm + runes
// transform chain.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics decomposes s and removes combining marks, so "José"
// becomes "Jose" and "García" becomes "Garcia".
func StripDiacritics(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// FoldLower strips diacritics and lower-cases, for case- and
// accent-insensitive comparisons (country names, name matching).
func FoldLower(s string) string {
	return strings.ToLower(StripDiacritics(s))
}
