// Package azcase provides Azerbaijani (Turkic) case conversion and the small
// set of orthographic helpers shared by the lemmatizer and the normalizer.
//
// Azerbaijani uses dotted/dotless I variants:
//   - I (U+0049) lowercases to ı (U+0131)
//   - İ (U+0130) lowercases to i (U+0069)
//
// All other runes use standard Unicode case mapping. All functions are safe
// for concurrent use.
package azcase

import (
	"strings"
	"unicode"
)

// Lower returns the Azerbaijani-aware lowercase form of r.
func Lower(r rune) rune {
	switch r {
	case 'I':
		return 'ı'
	case 'İ':
		return 'i'
	default:
		return unicode.ToLower(r)
	}
}

// ToLower composes s and lowercases every rune with Lower.
func ToLower(s string) string {
	s = ComposeNFC(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(Lower(r))
	}
	return b.String()
}

// IsUpperInitial reports whether the first rune of s is an upper-case letter.
func IsUpperInitial(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// HasLetter reports whether s contains at least one letter.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
