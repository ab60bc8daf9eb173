package ingest

import (
	"testing"

	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/stoplist"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer(stoplist.New([]string{"bu", "və"}), nil)

	tokens := tokenizer.Tokenize("Bu gün nazir və müavin görüşdü")

	expected := []string{"gün", "nazir", "müavin", "görüşdü"}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], expected[i])
		}
	}
}

func TestTokenizerHyphens(t *testing.T) {
	tokenizer := NewTokenizer(nil, nil)

	tokens := tokenizer.Tokenize("--COVID-19 pandemiyası və Qarabağ--Zəngəzur")

	want := map[string]bool{"covid-19": true, "qarabağ-zəngəzur": true}
	for _, tok := range tokens {
		delete(want, tok)
	}
	if len(want) != 0 {
		t.Errorf("missing hyphenated tokens %v in %v", want, tokens)
	}
}

func TestTokenizerAzerbaijaniCase(t *testing.T) {
	tokenizer := NewTokenizer(nil, nil)

	tokens := tokenizer.Tokenize("İQTİSADİYYAT IĞDIR")
	if len(tokens) != 2 || tokens[0] != "iqtisadiyyat" || tokens[1] != "ığdır" {
		t.Errorf("unexpected tokens %v", tokens)
	}
}

func TestTokenizerDropsNumbersAndSingleRunes(t *testing.T) {
	tokenizer := NewTokenizer(nil, nil)

	tokens := tokenizer.Tokenize("2024 10-15 a x5 b")
	if len(tokens) != 1 || tokens[0] != "x5" {
		t.Errorf("expected only x5, got %v", tokens)
	}
}

func TestTokenizerLemmatizes(t *testing.T) {
	stops := stoplist.New([]string{"şəhər"})
	tokenizer := NewTokenizer(stops, lemma.New(lemma.Options{}))

	tokens := tokenizer.Tokenize("Forumda şəhərdə")
	if len(tokens) != 1 || tokens[0] != "forum" {
		t.Errorf("expected [forum], got %v", tokens)
	}
}
