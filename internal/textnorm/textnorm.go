// Package textnorm folds free text from bank exports into comparable keys.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition ("é" -> "e").
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases, strips accents and collapses runs of whitespace to a single space.
// "  Café   DE Paris " -> "cafe de paris"
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(stripMarks(s))), " ")
}

// Key is Fold with all whitespace removed, used for header matching.
// "Booking Date" -> "bookingdate"
func Key(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.Join(strings.Fields(strings.ToLower(stripMarks(s))), "")
}

// Tokens splits folded text into alphanumeric words.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
