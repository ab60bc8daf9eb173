// Package normalize turns entity spans into canonical, typed and
// deduplicated entity records.
package normalize

import (
	"strings"

	"github.com/cognicore/azner/internal/azcase"
	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/span"
	"github.com/cognicore/azner/pkg/azner/stoplist"
	"github.com/cognicore/azner/pkg/azner/taxonomy"
)

// Entity is one distinct entity of a document. Start, End, Score and
// Surface come from its highest-scoring mention.
type Entity struct {
	Surface     string  `json:"surface"`
	Lemma       string  `json:"lemma"`
	Kind        string  `json:"kind"`
	Subtype     *string `json:"subtype"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Score       float64 `json:"score"`
	Occurrences int     `json:"occurrences"`
	// Position is the job title linked to a person, if any.
	Position string `json:"position,omitempty"`
}

// Mention is the source range of one accepted span.
type Mention struct {
	Kind  string
	Start int
	End   int
}

// SubtypeResolver is satisfied by *taxonomy.Resolver.
type SubtypeResolver interface {
	ResolveSubtype(kind, key string) (string, bool)
}

// LegalFormSubtype is assigned to organizations that end with a legal form.
const LegalFormSubtype = "COMPANY"

// positionWindow is how many spans back a person looks for its title.
const positionWindow = 2

// Options tune normalization. The zero value deduplicates case-insensitively
// and applies no filtering.
type Options struct {
	// CaseSensitiveDedup keeps lemmas that differ only in case apart. It has
	// no effect with lemma.Rules, which always returns lower case; it is for
	// case-preserving Lemmatizer implementations.
	CaseSensitiveDedup bool
	// FilterProperNames drops candidates that do not look like proper names.
	FilterProperNames bool
	// Stoplist is consulted by the proper-name filter.
	Stoplist *stoplist.List
	// LegalFormSuffixes ("mmc", "asc") mark organizations as companies when
	// the table lookup misses.
	LegalFormSuffixes []string
	// MergePartialNames counts "Əliyev" as another mention of an earlier
	// "İlham Əliyev" of the same kind, and the other way round.
	MergePartialNames bool
}

// Normalizer is safe for concurrent use when its Lemmatizer is.
type Normalizer struct {
	lem      lemma.Lemmatizer
	subtypes SubtypeResolver
	opts     Options
	suffixes []string
}

// New builds a Normalizer. subtypes may be nil.
func New(lem lemma.Lemmatizer, subtypes SubtypeResolver, opts Options) *Normalizer {
	n := &Normalizer{lem: lem, subtypes: subtypes, opts: opts}
	for _, s := range opts.LegalFormSuffixes {
		if s = strings.TrimSpace(azcase.ToLower(s)); s != "" {
			n.suffixes = append(n.suffixes, " "+s)
		}
	}
	return n
}

// Normalize builds entity records from spans over source.
func (n *Normalizer) Normalize(spans []span.Span, source string) []Entity {
	entities, _ := n.NormalizeMentions(spans, source)
	return entities
}

type position struct {
	index int
	lemma string
}

// NormalizeMentions is Normalize that also reports the source range of every
// span it accepted, including linked positions.
func (n *Normalizer) NormalizeMentions(spans []span.Span, source string) ([]Entity, []Mention) {
	entities := []Entity{}
	var mentions []Mention
	index := make(map[string]int)
	var positions []position

	for i, sp := range spans {
		if sp.Start < 0 || sp.End > len(source) || sp.Start >= sp.End {
			continue
		}
		surface := source[sp.Start:sp.End]
		if strings.TrimSpace(surface) == "" {
			continue
		}

		if sp.Kind == taxonomy.KindPosition {
			positions = append(positions, position{index: i, lemma: n.Lemma(surface)})
			mentions = append(mentions, Mention{Kind: sp.Kind, Start: sp.Start, End: sp.End})
			continue
		}
		if n.opts.FilterProperNames && !n.IsProperName(surface) {
			continue
		}
		lem := n.Lemma(surface)
		if lem == "" {
			continue
		}
		mentions = append(mentions, Mention{Kind: sp.Kind, Start: sp.Start, End: sp.End})

		key := n.dedupKey(lem, sp.Kind)
		j, seen := index[key]
		if !seen && n.opts.MergePartialNames {
			j, seen = n.partialMatch(entities, lem, sp.Kind)
		}
		if seen {
			e := &entities[j]
			e.Occurrences++
			if sp.MeanScore > e.Score {
				e.Surface, e.Start, e.End, e.Score = surface, sp.Start, sp.End, sp.MeanScore
			}
			if e.Kind == taxonomy.KindPerson && e.Position == "" {
				e.Position = nearestPosition(positions, i)
			}
			continue
		}

		ent := Entity{
			Surface:     surface,
			Lemma:       lem,
			Kind:        sp.Kind,
			Subtype:     n.subtype(sp.Kind, lem, surface),
			Start:       sp.Start,
			End:         sp.End,
			Score:       sp.MeanScore,
			Occurrences: 1,
		}
		if ent.Kind == taxonomy.KindPerson {
			ent.Position = nearestPosition(positions, i)
		}
		index[key] = len(entities)
		entities = append(entities, ent)
	}
	return entities, mentions
}

// Lemma lemmatizes every word of surface that contains a letter and joins
// the words with single spaces.
func (n *Normalizer) Lemma(surface string) string {
	words := strings.Fields(surface)
	for i, w := range words {
		if azcase.HasLetter(w) {
			words[i] = n.lem.Lemmatize(w)
		}
	}
	return strings.Join(words, " ")
}

// IsProperName rejects candidates that are too short, start with a
// lower-case letter, have no letters or are common words.
func (n *Normalizer) IsProperName(text string) bool {
	text = strings.TrimSpace(stripQuotes(text))
	if len([]rune(text)) < 2 {
		return false
	}
	if !azcase.IsUpperInitial(text) {
		return false
	}
	if !azcase.HasLetter(text) {
		return false
	}
	return !n.opts.Stoplist.IsStop(text)
}

func (n *Normalizer) dedupKey(lem, kind string) string {
	if !n.opts.CaseSensitiveDedup {
		lem = azcase.ToLower(lem)
	}
	return kind + "\x00" + lem
}

func (n *Normalizer) partialMatch(entities []Entity, lem, kind string) (int, bool) {
	if kind != taxonomy.KindPerson && kind != taxonomy.KindOrganization {
		return 0, false
	}
	needle := " " + azcase.ToLower(lem) + " "
	for j, e := range entities {
		if e.Kind != kind {
			continue
		}
		hay := " " + azcase.ToLower(e.Lemma) + " "
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			return j, true
		}
	}
	return 0, false
}

// subtype tries the lemma, then the surface, then the surface without
// quotes. Organizations with a legal-form suffix fall back to a company.
func (n *Normalizer) subtype(kind, lem, surface string) *string {
	if n.subtypes != nil {
		for _, key := range []string{lem, surface, stripQuotes(surface)} {
			if st, ok := n.subtypes.ResolveSubtype(kind, key); ok {
				return &st
			}
		}
	}
	if kind == taxonomy.KindOrganization && n.hasLegalForm(surface) {
		st := LegalFormSubtype
		return &st
	}
	return nil
}

func (n *Normalizer) hasLegalForm(surface string) bool {
	lower := strings.TrimSpace(azcase.ToLower(stripQuotes(surface)))
	for _, suf := range n.suffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

func nearestPosition(positions []position, at int) string {
	for k := len(positions) - 1; k >= 0; k-- {
		p := positions[k]
		if p.index >= at {
			continue
		}
		if at-p.index <= positionWindow {
			return p.lemma
		}
		break
	}
	return ""
}

var quoteStripper = strings.NewReplacer(`"`, "", "«", "", "»", "", "“", "", "”", "", "„", "")

func stripQuotes(s string) string {
	return strings.TrimSpace(quoteStripper.Replace(s))
}
