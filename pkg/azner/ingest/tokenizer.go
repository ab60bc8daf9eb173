package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/azner/internal/azcase"
	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/stoplist"
)

// Tokenizer turns residual text into lower-cased, lemmatized keyword tokens.
type Tokenizer struct {
	stops *stoplist.List
	lem   lemma.Lemmatizer // optional
}

// NewTokenizer creates a tokenizer. Both arguments may be nil.
func NewTokenizer(stops *stoplist.List, lem lemma.Lemmatizer) *Tokenizer {
	return &Tokenizer{stops: stops, lem: lem}
}

// Tokenize splits text into keyword tokens, removing stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range azcase.ComposeNFC(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(azcase.Lower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if utf8.RuneCountInString(word) <= 1 {
		return ""
	}
	// "2024" and "10-15" carry nothing; "covid-19" stays.
	if isNumericOnly(word) {
		return ""
	}
	if t.stops.IsStop(word) {
		return ""
	}
	if t.lem != nil {
		word = t.lem.Lemmatize(word)
		if t.stops.IsStop(word) {
			return ""
		}
	}
	return word
}

// cleanToken strips outer hyphens and folds hyphen runs.
func cleanToken(token string) string {
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}
