package lemma

import (
	"strings"
	"unicode/utf8"
)

// minStemRunes keeps short names (Əli, Şuşa) from being eaten by endings.
const minStemRunes = 3

type suffixRule struct {
	suffix string
	// afterVowel marks endings with a buffer consonant (-nın, -ya, -nı),
	// which only attach to vowel-final stems.
	afterVowel bool
	// afterConsonant marks the bare forms of those endings (-ın, -a, -ı).
	afterConsonant bool
	// ambiguous endings collide with the final letters of many names and
	// only strip from known stems or stems with a surname/toponym ending.
	ambiguous bool
	// bufferN endings are ambiguous after a high vowel: Bakı-nın reads the
	// same way as Putin-in.
	bufferN bool
}

// suffixRules are nominal endings, longest first.
var suffixRules = []suffixRule{
	// plural + case
	{suffix: "lardan"}, {suffix: "lərdən"},
	{suffix: "ların"}, {suffix: "lərin"},
	{suffix: "larda"}, {suffix: "lərdə"},
	{suffix: "lara"}, {suffix: "lərə"},
	{suffix: "ları"}, {suffix: "ləri"},

	// 3sg possessive + case
	{suffix: "sından", afterVowel: true}, {suffix: "sindən", afterVowel: true},
	{suffix: "sundan", afterVowel: true}, {suffix: "sündən", afterVowel: true},
	{suffix: "sının", afterVowel: true}, {suffix: "sinin", afterVowel: true},
	{suffix: "sunun", afterVowel: true}, {suffix: "sünün", afterVowel: true},
	{suffix: "sında", afterVowel: true}, {suffix: "sində", afterVowel: true},
	{suffix: "sunda", afterVowel: true}, {suffix: "sündə", afterVowel: true},
	{suffix: "sına", afterVowel: true}, {suffix: "sinə", afterVowel: true},
	{suffix: "suna", afterVowel: true}, {suffix: "sünə", afterVowel: true},
	{suffix: "ından", afterConsonant: true, ambiguous: true}, {suffix: "indən", afterConsonant: true, ambiguous: true},
	{suffix: "undan", afterConsonant: true, ambiguous: true}, {suffix: "ündən", afterConsonant: true, ambiguous: true},
	{suffix: "ının", afterConsonant: true, ambiguous: true}, {suffix: "inin", afterConsonant: true, ambiguous: true},
	{suffix: "unun", afterConsonant: true, ambiguous: true}, {suffix: "ünün", afterConsonant: true, ambiguous: true},
	{suffix: "ında", afterConsonant: true, ambiguous: true}, {suffix: "ində", afterConsonant: true, ambiguous: true},
	{suffix: "unda", afterConsonant: true, ambiguous: true}, {suffix: "ündə", afterConsonant: true, ambiguous: true},

	// relative locative
	{suffix: "dakı"}, {suffix: "dəki"},

	// ablative, locative
	{suffix: "dan"}, {suffix: "dən"},
	{suffix: "da"}, {suffix: "də"},

	// genitive
	{suffix: "nın", afterVowel: true, bufferN: true}, {suffix: "nin", afterVowel: true, bufferN: true},
	{suffix: "nun", afterVowel: true, bufferN: true}, {suffix: "nün", afterVowel: true, bufferN: true},
	{suffix: "ın", afterConsonant: true, ambiguous: true}, {suffix: "in", afterConsonant: true, ambiguous: true},
	{suffix: "un", afterConsonant: true, ambiguous: true}, {suffix: "ün", afterConsonant: true, ambiguous: true},

	// instrumental
	{suffix: "yla", afterVowel: true}, {suffix: "ylə", afterVowel: true},
	{suffix: "la", afterConsonant: true, ambiguous: true}, {suffix: "lə", afterConsonant: true, ambiguous: true},

	// plural
	{suffix: "lar"}, {suffix: "lər"},

	// dative
	{suffix: "ya", afterVowel: true}, {suffix: "yə", afterVowel: true},
	{suffix: "a", afterConsonant: true, ambiguous: true}, {suffix: "ə", afterConsonant: true, ambiguous: true},

	// accusative
	{suffix: "nı", afterVowel: true, bufferN: true}, {suffix: "ni", afterVowel: true, bufferN: true},
	{suffix: "nu", afterVowel: true, bufferN: true}, {suffix: "nü", afterVowel: true, bufferN: true},
	{suffix: "ı", afterConsonant: true, ambiguous: true}, {suffix: "i", afterConsonant: true, ambiguous: true},
	{suffix: "u", afterConsonant: true, ambiguous: true}, {suffix: "ü", afterConsonant: true, ambiguous: true},

	// 3sg possessive
	{suffix: "sı", afterVowel: true, ambiguous: true}, {suffix: "si", afterVowel: true, ambiguous: true},
	{suffix: "su", afterVowel: true, ambiguous: true}, {suffix: "sü", afterVowel: true, ambiguous: true},
}

// nameEndings are productive surname and toponym endings.
var nameEndings = []string{
	"ov", "ev", "ova", "eva", "yan", "zadə", "stan",
	"lı", "li", "lu", "lü",
}

func (s suffixRule) apply(w string) (string, bool) {
	if !strings.HasSuffix(w, s.suffix) {
		return "", false
	}
	stem := w[:len(w)-len(s.suffix)]
	if utf8.RuneCountInString(stem) < minStemRunes {
		return "", false
	}
	last, _ := utf8.DecodeLastRuneInString(stem)
	if s.afterVowel && !isVowel(last) {
		return "", false
	}
	if s.afterConsonant && isVowel(last) {
		return "", false
	}
	if !harmonizes(stem, s.suffix) {
		return "", false
	}
	return stem, true
}

func (s suffixRule) ambiguousFor(stem string) bool {
	if s.ambiguous {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(stem)
	return s.bufferN && isHigh(last)
}

func hasNameEnding(stem string) bool {
	for _, end := range nameEndings {
		if strings.HasSuffix(stem, end) {
			return true
		}
	}
	return false
}

func isBareSuffix(s string) bool {
	for _, rule := range suffixRules {
		if rule.suffix == s {
			return true
		}
	}
	return false
}

// harmonizes checks front/back agreement of every suffix vowel with the
// vowel before it, and rounding agreement for the high vowels ı i u ü.
// Stems without vowels (abbreviations) accept anything.
func harmonizes(stem, suffix string) bool {
	prev := lastVowel(stem)
	if prev == 0 {
		return true
	}
	for _, v := range suffix {
		if !isVowel(v) {
			continue
		}
		if isBack(v) != isBack(prev) {
			return false
		}
		if isHigh(v) && isRounded(v) != isRounded(prev) {
			return false
		}
		prev = v
	}
	return true
}

func lastVowel(s string) rune {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if isVowel(r) {
			return r
		}
		s = s[:len(s)-size]
	}
	return 0
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'ı', 'o', 'u', 'ə', 'e', 'i', 'ö', 'ü':
		return true
	}
	return false
}

func isBack(r rune) bool {
	switch r {
	case 'a', 'ı', 'o', 'u':
		return true
	}
	return false
}

func isHigh(r rune) bool {
	switch r {
	case 'ı', 'i', 'u', 'ü':
		return true
	}
	return false
}

func isRounded(r rune) bool {
	switch r {
	case 'o', 'u', 'ö', 'ü':
		return true
	}
	return false
}
