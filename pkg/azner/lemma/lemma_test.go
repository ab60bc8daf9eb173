package lemma

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLemmatizeNames(t *testing.T) {
	lem := New(Options{KnownNames: []string{"Bakı", "Putin", "Nyu-York"}})

	tests := []struct {
		word, want string
	}{
		{"Bakı", "bakı"},
		{"BAKI", "bakı"},
		{"Bakının", "bakı"},
		{"Bakıda", "bakı"},
		{"Bakıdakı", "bakı"},
		{"Putin", "putin"},
		{"Putinin", "putin"},
		{"Moskvada", "moskva"},
		{"Moskvanın", "moskva"},
		{"Londonda", "london"},
		{"Rusiya", "rusiya"},
		{"Rusiyaya", "rusiya"},
		{"Gəncəyə", "gəncə"},
		{"Gəncə", "gəncə"},
		{"İlham", "ilham"},
		{"Əliyev", "əliyev"},
		{"Əliyevin", "əliyev"},
		{"Əliyevlərin", "əliyev"},
		{"Əli", "əli"},
		{"Nizami", "nizami"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, lem.Lemmatize(tt.word))
		})
	}
}

func TestLemmatizeStackedEndings(t *testing.T) {
	lem := New(Options{KnownNames: []string{"Moskva", "Bakı"}})

	assert.Equal(t, "moskva", lem.Lemmatize("Moskvadakılar"))
	assert.Equal(t, "bakı", lem.Lemmatize("Bakıdakılardan"))
	assert.Equal(t, "şirkət", lem.Lemmatize("Şirkətlərindən"))
}

func TestLemmatizeIsIdempotent(t *testing.T) {
	lem := New(Options{KnownNames: []string{"Moskva", "Bakı"}})

	words := []string{
		"Moskvadakılar", "Bakıdakılardan", "Şirkətlərindən", "Bakının",
		"Əliyevlərin", "Rusiyaya", "Gəncəyə", "Londonda", "Nyu-York'da",
		"olunur", "Putinin", "COVID-19-un", "Görür",
	}
	for _, w := range words {
		t.Run(w, func(t *testing.T) {
			once := lem.Lemmatize(w)
			assert.Equal(t, once, lem.Lemmatize(once))
		})
	}
}

func TestLemmatizeAmbiguousWithoutDictionary(t *testing.T) {
	lem := New(Options{})

	// Without a known stem both readings are plausible; the word is kept.
	assert.Equal(t, "bakının", lem.Lemmatize("Bakının"))
	assert.Equal(t, "putinin", lem.Lemmatize("Putinin"))
	// Unambiguous endings still strip.
	assert.Equal(t, "moskva", lem.Lemmatize("Moskvada"))
}

func TestLemmatizePunctuation(t *testing.T) {
	lem := New(Options{KnownNames: []string{"Bakı"}})

	assert.Equal(t, "bakı,", lem.Lemmatize("Bakı,"))
	assert.Equal(t, "(bakı)", lem.Lemmatize("(Bakı)"))
	assert.Equal(t, `"bakı"`, lem.Lemmatize(`"Bakının"`))
	assert.Equal(t, "2024", lem.Lemmatize("2024"))
	assert.Equal(t, "—", lem.Lemmatize("—"))
	assert.Equal(t, "", lem.Lemmatize(""))
}

func TestLemmatizeApostropheAndHyphen(t *testing.T) {
	lem := New(Options{})

	assert.Equal(t, "bmt", lem.Lemmatize("BMT'nin"))
	assert.Equal(t, "nyu-york", lem.Lemmatize("Nyu-York'da"))
	assert.Equal(t, "abş", lem.Lemmatize("ABŞ-ın"))
	assert.Equal(t, "covid-19", lem.Lemmatize("COVID-19-un"))
}

func TestLemmatizeLexicon(t *testing.T) {
	lem := New(Options{})

	assert.Equal(t, "ol", lem.Lemmatize("olunur"))
	assert.Equal(t, "gör", lem.Lemmatize("Görür"))
	assert.Equal(t, "var", lem.Lemmatize("var"))
}

func TestLemmatizeDeterministic(t *testing.T) {
	cached := New(Options{KnownNames: []string{"Bakı"}})
	uncached := New(Options{KnownNames: []string{"Bakı"}, CacheSize: -1})

	for _, w := range []string{"Bakının", "Moskvada", "Əliyevin", "Bakının"} {
		first := cached.Lemmatize(w)
		assert.Equal(t, first, cached.Lemmatize(w), w)
		assert.Equal(t, first, uncached.Lemmatize(w), w)
	}
}

func TestLemmatizeConcurrent(t *testing.T) {
	lem := New(Options{KnownNames: []string{"Bakı"}, CacheSize: 4})
	words := []string{"Bakının", "Moskvada", "Əliyevin", "Londonda", "Gəncəyə", "Rusiyaya"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				w := words[j%len(words)]
				_ = lem.Lemmatize(w)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "bakı", lem.Lemmatize("Bakının"))
}

func TestFuncAdapter(t *testing.T) {
	var lem Lemmatizer = Func(func(w string) string { return "x" + w })
	assert.Equal(t, "xy", lem.Lemmatize("y"))
}

func TestLoadLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemmas.yaml")
	content := `
lemmas:
  - lemma: get
    forms: [gedir, getdi]
unchangeable: [bəli]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.Equal(t, "get", lex.Exceptions["getdi"])
	assert.Equal(t, []string{"bəli"}, lex.Unchangeable)

	lem := New(Options{Lexicon: lex})
	assert.Equal(t, "get", lem.Lemmatize("getdi"))
	// The default lexicon is replaced, not merged.
	assert.Equal(t, "olunur", lem.Lemmatize("olunur"))
}

func TestLoadLexiconErrors(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseLexicon([]byte("lemmas:\n  - forms: [a]\n"))
	assert.Error(t, err)

	_, err = ParseLexicon([]byte("lemmas: [unclosed"))
	assert.Error(t, err)
}
