// Package stoplist holds common Azerbaijani words that the model tends to
// tag as entities but which are never proper names on their own.
package stoplist

import (
	"sort"
	"strings"

	"github.com/cognicore/azner/internal/azcase"
)

// List is a case-insensitive word set. Mutate it only before sharing.
type List struct {
	stops map[string]struct{}
}

// New creates a list from terms.
func New(terms []string) *List {
	l := &List{stops: make(map[string]struct{}, len(terms))}
	for _, t := range terms {
		l.Add(t)
	}
	return l
}

// Default returns the built-in list: pronouns, question words and generic
// nouns such as "şəhər" or "bank".
func Default() *List {
	return New([]string{
		"mən", "sən", "o", "biz", "siz", "onlar",
		"bu", "həmin", "belə", "kim", "nə", "harada",
		"necə", "niyə", "nə üçün",
		"respublika", "dövlət", "şəhər", "rayon",
		"universitet", "bank", "şirkət", "kompaniya",
		"ölkədə", "ölkə", "şəhərdə", "rayonda",
	})
}

// IsStop reports whether token is on the list.
func (l *List) IsStop(token string) bool {
	if l == nil {
		return false
	}
	_, ok := l.stops[key(token)]
	return ok
}

// Add puts token on the list.
func (l *List) Add(token string) {
	if k := key(token); k != "" {
		l.stops[k] = struct{}{}
	}
}

// Remove takes token off the list.
func (l *List) Remove(token string) {
	delete(l.stops, key(token))
}

// All returns the stopwords in sorted order.
func (l *List) All() []string {
	result := make([]string, 0, len(l.stops))
	for s := range l.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of stopwords.
func (l *List) Len() int { return len(l.stops) }

func key(token string) string {
	return strings.Join(strings.Fields(azcase.ToLower(token)), " ")
}
