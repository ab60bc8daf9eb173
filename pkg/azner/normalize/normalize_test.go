package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/span"
	"github.com/cognicore/azner/pkg/azner/stoplist"
	"github.com/cognicore/azner/pkg/azner/taxonomy"
)

func newResolver() *taxonomy.Resolver {
	return taxonomy.NewResolver(taxonomy.Tables{
		Locations: []taxonomy.Subtype{
			{Name: "city", Names: []string{"Bakı", "Gəncə"}},
			{Name: "country", Names: []string{"Türkiyə"}},
		},
		Organizations: []taxonomy.Subtype{
			{Name: "GOVERNMENT", Names: []string{"Nazirlər Kabineti"}},
			{Name: "MEDIA", Names: []string{"APA"}},
		},
	})
}

func newNormalizer(opts Options) *Normalizer {
	res := newResolver()
	lem := lemma.New(lemma.Options{KnownNames: res.KnownNames()})
	return New(lem, res, opts)
}

// spanAt builds a span covering the first occurrence of word at or after from.
func spanAt(t *testing.T, src, word, kind string, from int, score float64) span.Span {
	t.Helper()
	i := strings.Index(src[from:], word)
	require.GreaterOrEqual(t, i, 0, "word %q not found", word)
	start := from + i
	return span.Span{Kind: kind, Start: start, End: start + len(word), MeanScore: score}
}

func TestNormalizeCityScenario(t *testing.T) {
	src := "Bakı"
	spans := []span.Span{{Kind: "LOC", Start: 0, End: len(src), MeanScore: 0.95}}

	got := newNormalizer(Options{}).Normalize(spans, src)

	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, "Bakı", e.Surface)
	assert.Equal(t, "bakı", e.Lemma)
	assert.Equal(t, "LOC", e.Kind)
	require.NotNil(t, e.Subtype)
	assert.Equal(t, "city", *e.Subtype)
	assert.Equal(t, 1, e.Occurrences)
	assert.InDelta(t, 0.95, e.Score, 1e-9)
}

func TestNormalizePersonHasNoSubtype(t *testing.T) {
	src := "İlham Əliyev"
	spans := []span.Span{{Kind: "PER", Start: 0, End: len(src), MeanScore: 0.9}}

	got := newNormalizer(Options{}).Normalize(spans, src)

	require.Len(t, got, 1)
	assert.Equal(t, "ilham əliyev", got[0].Lemma)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, len(src), got[0].End)
	assert.Nil(t, got[0].Subtype)
}

func TestNormalizeDeduplicates(t *testing.T) {
	src := "Bakıda keçirilən forum Bakının gələcəyi, BAKI üçün"
	spans := []span.Span{
		spanAt(t, src, "Bakıda", "LOC", 0, 0.7),
		spanAt(t, src, "Bakının", "LOC", 0, 0.9),
		spanAt(t, src, "BAKI", "LOC", 0, 0.8),
	}

	got := newNormalizer(Options{}).Normalize(spans, src)

	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, "bakı", e.Lemma)
	assert.Equal(t, 3, e.Occurrences)
	assert.Equal(t, "Bakının", e.Surface, "highest score mention wins")
	assert.Equal(t, spans[1].Start, e.Start)
	assert.InDelta(t, 0.9, e.Score, 1e-9)
}

func TestNormalizeTwoMentionsCountTwice(t *testing.T) {
	src := "Gəncə və Gəncə"
	spans := []span.Span{
		spanAt(t, src, "Gəncə", "LOC", 0, 0.8),
		spanAt(t, src, "Gəncə", "LOC", 3, 0.8),
	}

	got := newNormalizer(Options{}).Normalize(spans, src)

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Occurrences)
	assert.Equal(t, 0, got[0].Start, "first mention wins on ties")
}

func TestNormalizeSameLemmaDifferentKind(t *testing.T) {
	src := "Bakı Bakı"
	spans := []span.Span{
		{Kind: "LOC", Start: 0, End: 5, MeanScore: 0.9},
		{Kind: "ORG", Start: 6, End: 11, MeanScore: 0.9},
	}

	got := newNormalizer(Options{}).Normalize(spans, src)

	require.Len(t, got, 2)
	assert.Equal(t, "LOC", got[0].Kind)
	assert.Equal(t, "ORG", got[1].Kind)
}

func TestNormalizeCaseSensitiveDedup(t *testing.T) {
	lem := lemma.Func(func(w string) string { return w })
	src := "APA apa"
	spans := []span.Span{
		{Kind: "ORG", Start: 0, End: 3, MeanScore: 0.9},
		{Kind: "ORG", Start: 4, End: 7, MeanScore: 0.9},
	}

	assert.Len(t, New(lem, nil, Options{}).Normalize(spans, src), 1)
	assert.Len(t, New(lem, nil, Options{CaseSensitiveDedup: true}).Normalize(spans, src), 2)

	// The rule lemmatizer lower-cases, so the flag changes nothing there.
	rules := lemma.New(lemma.Options{})
	assert.Len(t, New(rules, nil, Options{}).Normalize(spans, src), 1)
	assert.Len(t, New(rules, nil, Options{CaseSensitiveDedup: true}).Normalize(spans, src), 1)
}

func TestNormalizeOrderOfFirstAppearance(t *testing.T) {
	src := "Türkiyə, Bakı və yenə Türkiyə"
	spans := []span.Span{
		spanAt(t, src, "Türkiyə", "LOC", 0, 0.9),
		spanAt(t, src, "Bakı", "LOC", 0, 0.9),
		spanAt(t, src, "Türkiyə", "LOC", 10, 0.99),
	}

	got := newNormalizer(Options{}).Normalize(spans, src)

	require.Len(t, got, 2)
	assert.Equal(t, "türkiyə", got[0].Lemma)
	assert.Equal(t, "country", *got[0].Subtype)
	assert.Equal(t, "bakı", got[1].Lemma)
}

func TestNormalizeSubtypeFallbacks(t *testing.T) {
	src := `"Nazirlər Kabineti" və "APA"`
	spans := []span.Span{
		spanAt(t, src, `"Nazirlər Kabineti"`, "ORG", 0, 0.9),
		spanAt(t, src, `"APA"`, "ORG", 0, 0.9),
	}

	got := newNormalizer(Options{}).Normalize(spans, src)

	require.Len(t, got, 2)
	require.NotNil(t, got[0].Subtype)
	assert.Equal(t, "GOVERNMENT", *got[0].Subtype)
	require.NotNil(t, got[1].Subtype)
	assert.Equal(t, "MEDIA", *got[1].Subtype)
}

func TestNormalizeLegalForm(t *testing.T) {
	src := `"Azərsu" ASC və Naməlum Birlik`
	spans := []span.Span{
		spanAt(t, src, `"Azərsu" ASC`, "ORG", 0, 0.9),
		spanAt(t, src, "Naməlum Birlik", "ORG", 0, 0.9),
	}

	n := newNormalizer(Options{LegalFormSuffixes: []string{"MMC", "asc"}})
	got := n.Normalize(spans, src)

	require.Len(t, got, 2)
	require.NotNil(t, got[0].Subtype)
	assert.Equal(t, LegalFormSubtype, *got[0].Subtype)
	assert.Nil(t, got[1].Subtype)
}

func TestNormalizeProperNameFilter(t *testing.T) {
	src := "şəhər Rayon 12 Bakı X"
	spans := []span.Span{
		spanAt(t, src, "şəhər", "LOC", 0, 0.9),
		spanAt(t, src, "Rayon", "LOC", 0, 0.9),
		spanAt(t, src, "12", "LOC", 0, 0.9),
		spanAt(t, src, "Bakı", "LOC", 0, 0.9),
		spanAt(t, src, "X", "LOC", 0, 0.9),
	}

	filtered := newNormalizer(Options{FilterProperNames: true, Stoplist: stoplist.Default()})
	got, mentions := filtered.NormalizeMentions(spans, src)
	require.Len(t, got, 1)
	assert.Equal(t, "bakı", got[0].Lemma)
	assert.Len(t, mentions, 1)

	unfiltered := newNormalizer(Options{})
	assert.Len(t, unfiltered.Normalize(spans, src), 5)
}

func TestNormalizePositionLinking(t *testing.T) {
	src := "Prezident İlham Əliyev Bakıda Nazir Kamran Əliyevlə görüşdü"
	spans := []span.Span{
		spanAt(t, src, "Prezident", taxonomy.KindPosition, 0, 0.9),
		spanAt(t, src, "İlham Əliyev", "PER", 0, 0.9),
		spanAt(t, src, "Bakıda", "LOC", 0, 0.9),
		spanAt(t, src, "Kamran Əliyevlə", "PER", 0, 0.9),
	}

	got, mentions := newNormalizer(Options{}).NormalizeMentions(spans, src)

	require.Len(t, got, 3)
	assert.Equal(t, "prezident", got[0].Position)
	assert.Equal(t, "kamran əliyev", got[2].Lemma)
	assert.Equal(t, "", got[2].Position, "no position within two spans")
	assert.Len(t, mentions, 4, "positions count as recognized text")
	for _, e := range got {
		assert.NotEqual(t, taxonomy.KindPosition, e.Kind)
	}
}

func TestNormalizePositionWindow(t *testing.T) {
	src := "Nazir A B Kamran"
	spans := []span.Span{
		spanAt(t, src, "Nazir", taxonomy.KindPosition, 0, 0.9),
		spanAt(t, src, "A", "LOC", 0, 0.9),
		spanAt(t, src, "Kamran", "PER", 0, 0.9),
	}
	got := newNormalizer(Options{}).Normalize(spans, src)
	require.Len(t, got, 2)
	assert.Equal(t, "nazir", got[1].Position)

	spans = []span.Span{
		spanAt(t, src, "Nazir", taxonomy.KindPosition, 0, 0.9),
		spanAt(t, src, "A", "LOC", 0, 0.9),
		spanAt(t, src, "B", "LOC", 0, 0.9),
		spanAt(t, src, "Kamran", "PER", 0, 0.9),
	}
	got = newNormalizer(Options{}).Normalize(spans, src)
	require.Len(t, got, 3)
	assert.Equal(t, "", got[2].Position)
}

func TestNormalizeMergePartialNames(t *testing.T) {
	src := "İlham Əliyev dedi ki, Əliyev"
	spans := []span.Span{
		spanAt(t, src, "İlham Əliyev", "PER", 0, 0.9),
		spanAt(t, src, "Əliyev", "PER", 10, 0.8),
	}

	got := newNormalizer(Options{MergePartialNames: true}).Normalize(spans, src)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Occurrences)
	assert.Equal(t, "İlham Əliyev", got[0].Surface)

	assert.Len(t, newNormalizer(Options{}).Normalize(spans, src), 2)
}

func TestNormalizeSkipsInvalidSpans(t *testing.T) {
	src := "Bakı"
	spans := []span.Span{
		{Kind: "LOC", Start: -1, End: 2},
		{Kind: "LOC", Start: 0, End: 99},
		{Kind: "LOC", Start: 3, End: 3},
	}
	got := newNormalizer(Options{}).Normalize(spans, src)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLemmaIsIdempotentOnSurface(t *testing.T) {
	n := newNormalizer(Options{})
	src := "Bakının mərkəzi, Nazirlər Kabineti"
	spans := []span.Span{
		spanAt(t, src, "Bakının", "LOC", 0, 0.9),
		spanAt(t, src, "Nazirlər Kabineti", "ORG", 0, 0.9),
	}
	for _, e := range n.Normalize(spans, src) {
		assert.Equal(t, e.Lemma, n.Lemma(e.Surface))
	}
}

func TestLemmaKeepsPunctuation(t *testing.T) {
	n := New(lemma.New(lemma.Options{KnownNames: []string{"Bakı"}}), nil, Options{})
	assert.Equal(t, "bakı, 2024", n.Lemma("Bakı,   2024"))
}

func TestEntityJSON(t *testing.T) {
	st := "city"
	data, err := json.Marshal([]Entity{
		{Surface: "Bakı", Lemma: "bakı", Kind: "LOC", Subtype: &st, Start: 0, End: 5, Score: 0.95, Occurrences: 1},
		{Surface: "Əli", Lemma: "əli", Kind: "PER", Occurrences: 2},
	})
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"subtype":"city"`)
	assert.Contains(t, s, `"subtype":null`)
	assert.Contains(t, s, `"occurrences":2`)
	assert.NotContains(t, s, `"position"`)
}
