// Package lemma reduces inflected Azerbaijani words to a canonical form.
//
// The default implementation is rule based and conservative: it only strips
// nominal case, possessive and plural endings, and it refuses short,
// ambiguous endings unless the remaining stem is a known name. Proper names
// in news text ("Bakı", "Moskva", "Putin") must survive untouched while their
// inflected forms ("Bakının", "Moskvada", "Putinin") fold onto them.
package lemma

import (
	"strings"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/azner/internal/azcase"
)

// Lemmatizer maps a single word to its canonical form. Implementations must
// be deterministic and safe for concurrent use.
type Lemmatizer interface {
	Lemmatize(word string) string
}

// Func adapts an ordinary function to Lemmatizer.
type Func func(word string) string

// Lemmatize calls f(word).
func (f Func) Lemmatize(word string) string { return f(word) }

// DefaultCacheSize is the number of distinct word cores kept in the LRU.
const DefaultCacheSize = 8192

// Options configures Rules.
type Options struct {
	// Lexicon holds irregular forms and words that never change.
	// DefaultLexicon is used when nil.
	Lexicon *Lexicon
	// KnownNames seeds the stem dictionary, usually from the subtype tables.
	KnownNames []string
	// CacheSize bounds the LRU; 0 means DefaultCacheSize, negative disables it.
	CacheSize int
}

// Rules is the default Lemmatizer.
type Rules struct {
	exceptions   map[string]string
	unchangeable map[string]struct{}
	known        map[string]struct{}
	cache        *lru.Cache[string, string]
}

// New builds a Rules lemmatizer.
func New(opts Options) *Rules {
	lex := opts.Lexicon
	if lex == nil {
		lex = DefaultLexicon()
	}

	r := &Rules{
		exceptions:   make(map[string]string, len(lex.Exceptions)),
		unchangeable: make(map[string]struct{}, len(lex.Unchangeable)),
		known:        make(map[string]struct{}, len(opts.KnownNames)),
	}
	for form, lemma := range lex.Exceptions {
		r.exceptions[azcase.ToLower(form)] = azcase.ToLower(lemma)
	}
	for _, w := range lex.Unchangeable {
		r.unchangeable[azcase.ToLower(w)] = struct{}{}
	}
	for _, name := range opts.KnownNames {
		r.AddKnown(name)
	}

	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		if cache, err := lru.New[string, string](size); err == nil {
			r.cache = cache
		}
	}
	return r
}

// AddKnown registers every word of name as a known stem. It must not be
// called once the lemmatizer is shared.
func (r *Rules) AddKnown(name string) {
	for _, part := range strings.FieldsFunc(azcase.ToLower(name), notLetter) {
		if utf8.RuneCountInString(part) >= 2 {
			r.known[part] = struct{}{}
		}
	}
}

// Lemmatize lowercases the alphabetic core of word and strips its
// inflection. Leading and trailing non-letter runs are kept verbatim.
func (r *Rules) Lemmatize(word string) string {
	lead, core, trail := splitAffixes(word)
	if core == "" {
		return word
	}
	if r.cache != nil {
		if v, ok := r.cache.Get(core); ok {
			return lead + v + trail
		}
	}
	lemma := r.lemmatizeCore(core)
	if r.cache != nil {
		r.cache.Add(core, lemma)
	}
	return lead + lemma + trail
}

func (r *Rules) lemmatizeCore(core string) string {
	w := azcase.ToLower(core)

	// Apostrophe marks the suffix boundary on foreign and abbreviated names:
	// Nyu-York'da, BMT'nin.
	if i := strings.IndexAny(w, "'’`"); i > 0 {
		return w[:i]
	}

	if strings.Contains(w, "-") {
		parts := strings.Split(w, "-")
		// ABŞ-ın, COVID-19-un: a trailing part that is only an ending.
		if n := len(parts); n > 1 && isBareSuffix(parts[n-1]) {
			parts = parts[:n-1]
		}
		for i, p := range parts {
			if p != "" {
				parts[i] = r.lemmatizeWord(p)
			}
		}
		return strings.Join(parts, "-")
	}
	return r.lemmatizeWord(w)
}

// lemmatizeWord expects an already lower-cased word without separators.
// lemmatizeWord strips one suffix layer at a time until nothing more comes
// off, so stacked endings ("-dakı-lar-dan") reduce fully.
func (r *Rules) lemmatizeWord(w string) string {
	for i := utf8.RuneCountInString(w); i > 0; i-- {
		if lemma, ok := r.exceptions[w]; ok {
			return lemma
		}
		if _, ok := r.unchangeable[w]; ok {
			return w
		}
		if r.isKnown(w) {
			return w
		}
		next := r.strip(w)
		if next == w {
			return w
		}
		w = next
	}
	return w
}

func (r *Rules) isKnown(stem string) bool {
	_, ok := r.known[stem]
	return ok
}

// strip tries every suffix rule. A candidate stem that is a known name wins
// outright; otherwise the longest acceptable suffix is removed.
func (r *Rules) strip(w string) string {
	best := ""
	for _, rule := range suffixRules {
		stem, ok := rule.apply(w)
		if !ok {
			continue
		}
		if r.isKnown(stem) {
			return stem
		}
		if best != "" {
			continue
		}
		if rule.ambiguousFor(stem) && !hasNameEnding(stem) {
			continue
		}
		best = stem
	}
	if best == "" {
		return w
	}
	return best
}

// splitAffixes cuts word into its leading non-letters, the run from the
// first to the last letter, and the trailing non-letters.
func splitAffixes(word string) (lead, core, trail string) {
	first := strings.IndexFunc(word, unicode.IsLetter)
	if first < 0 {
		return word, "", ""
	}
	last := strings.LastIndexFunc(word, unicode.IsLetter)
	_, size := utf8.DecodeRuneInString(word[last:])
	end := last + size
	return word[:first], word[first:end], word[end:]
}

func notLetter(r rune) bool { return !unicode.IsLetter(r) }
