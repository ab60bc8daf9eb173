package azner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/azner/pkg/azner/ingest"
	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/span"
	"github.com/cognicore/azner/pkg/azner/store"
	"github.com/cognicore/azner/pkg/azner/store/memstore"
	"github.com/cognicore/azner/pkg/azner/taxonomy"
)

// dictTagger tags every whitespace-separated word that starts with one of
// the dictionary stems and fails on texts containing "XƏTA".
func dictTagger(stems map[string]string) ingest.Tagger {
	return ingest.TaggerFunc(func(ctx context.Context, text string) ([]span.Token, error) {
		if strings.Contains(text, "XƏTA") {
			return nil, errors.New("model server unavailable")
		}
		var tokens []span.Token
		start := -1
		emit := func(end int) {
			word := strings.TrimRightFunc(text[start:end], unicode.IsPunct)
			tag := span.Outside
			for stem, kind := range stems {
				if strings.HasPrefix(word, stem) {
					tag = "B-" + kind
				}
			}
			tokens = append(tokens, span.Token{Text: word, Tag: tag, Start: start, End: start + len(word), Score: 0.9})
		}
		for i, r := range text {
			if unicode.IsSpace(r) {
				if start >= 0 {
					emit(i)
					start = -1
				}
			} else if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			emit(len(text))
		}
		return tokens, nil
	})
}

func newTestEngine(t *testing.T, st store.Store, batch BatchOptions) *Engine {
	t.Helper()
	res := taxonomy.NewResolver(taxonomy.Tables{
		Labels:    map[string]string{"PER": "PER", "LOC": "LOC", "ORG": "ORG"},
		Locations: []taxonomy.Subtype{{Name: "city", Names: []string{"Bakı", "Gəncə"}}},
	})
	pipe, err := ingest.NewPipeline(
		dictTagger(map[string]string{"Bakı": "LOC", "Gəncə": "LOC", "Əliyev": "PER", "SOCAR": "ORG"}),
		res,
		lemma.New(lemma.Options{KnownNames: res.KnownNames()}),
		ingest.Options{},
	)
	require.NoError(t, err)

	e, err := New(Options{Store: st, Pipeline: pipe, Batch: batch})
	require.NoError(t, err)
	return e
}

const longText = "Əliyev bu gün Bakıda SOCAR rəhbərliyi ilə görüşüb və Gəncə şəhərinin inkişafını müzakirə edib."

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Store: memstore.New()})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestNewAppliesBatchDefaults(t *testing.T) {
	e := newTestEngine(t, memstore.New(), BatchOptions{BatchSize: 7})
	assert.Equal(t, 7, e.batch.BatchSize)
	assert.Equal(t, 50, e.batch.MinTextLength)
	assert.Equal(t, uint(3), e.batch.FlushAttempts)
}

func TestExtractPreprocesses(t *testing.T) {
	e := newTestEngine(t, memstore.New(), BatchOptions{})

	out, err := e.Extract(context.Background(), "«Bakı»\n• paytaxtdır")
	require.NoError(t, err)
	assert.Equal(t, `"Bakı" paytaxtdır`, out.Text)
	require.Len(t, out.Entities, 0, "quoted word does not start with the stem")

	out, err = e.Extract(context.Background(), "Bakı\n• paytaxtdır")
	require.NoError(t, err)
	assert.Equal(t, "Bakı paytaxtdır", out.Text)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "LOC", out.Entities[0].Kind)
	assert.Equal(t, "Bakı", out.Text[out.Entities[0].Start:out.Entities[0].End])
	assert.Equal(t, "paytaxtdır", out.Remaining)
}

func TestAddArticle(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	e := newTestEngine(t, st, BatchOptions{})

	in := ArticleInput{
		URL:   "https://apa.az/xeber/1",
		Title: "Görüş",
		Text:  "Əliyev\nBakıda çıxış edib.",
		Tags:  []string{"siyasət"},
	}
	p, err := e.AddArticle(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Əliyev Bakıda çıxış edib.", p.Text)
	assert.Len(t, p.Entities, 2)
	assert.False(t, p.ParseDate.IsZero())

	src, err := st.GetArticle(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Text, src.Text, "the source keeps the raw text")

	stored, err := st.GetProcessed(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Entities, 2)

	_, err = e.AddArticle(ctx, in)
	assert.ErrorIs(t, err, internalerr.ErrDuplicate)
}

func TestAddArticleValidation(t *testing.T) {
	e := newTestEngine(t, memstore.New(), BatchOptions{})

	tests := []struct {
		name string
		in   ArticleInput
	}{
		{"no url", ArticleInput{Title: "t", Text: "x"}},
		{"bad url", ArticleInput{URL: "not a url", Title: "t", Text: "x"}},
		{"no title", ArticleInput{URL: "https://apa.az/1", Text: "x"}},
		{"no text", ArticleInput{URL: "https://apa.az/1", Title: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AddArticle(context.Background(), tt.in)
			assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
		})
	}
}

func TestAddArticleTaggingFailure(t *testing.T) {
	e := newTestEngine(t, memstore.New(), BatchOptions{})

	_, err := e.AddArticle(context.Background(), ArticleInput{URL: "https://apa.az/1", Title: "t", Text: "XƏTA"})
	assert.ErrorIs(t, err, internalerr.ErrTagging)
}

func seed(t *testing.T, st store.Store, texts ...string) {
	t.Helper()
	for i, text := range texts {
		id := string(rune('A' + i))
		require.NoError(t, st.InsertArticle(context.Background(), store.Article{
			ID: id, URL: "https://apa.az/" + id, Title: id, Text: text,
		}))
	}
}

func TestProcessAll(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st,
		longText,
		"Qısa mətn.",
		"",
		longText+" XƏTA",
		"Bakı və Gəncə arasında yeni qatar xətti açılıb, sərnişinlər artıq bilet ala bilərlər.",
		longText,
	)
	e := newTestEngine(t, st, BatchOptions{BatchSize: 2})

	stats, err := e.ProcessAll(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Persons)
	assert.Equal(t, 2, stats.Organisations)
	assert.Equal(t, 6, stats.Locations)

	list, err := st.ListProcessed(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestProcessAllWithoutMinimumLength(t *testing.T) {
	st := memstore.New()
	seed(t, st, "Qısa mətn.", "Bakı")
	e := newTestEngine(t, st, BatchOptions{MinTextLength: -1})

	stats, err := e.ProcessAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 1, stats.Locations)
}

func TestProcessAllLimit(t *testing.T) {
	st := memstore.New()
	seed(t, st, longText, longText, longText)
	e := newTestEngine(t, st, BatchOptions{})

	stats, err := e.ProcessAll(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Processed)
}

func TestProcessAllCancelled(t *testing.T) {
	st := memstore.New()
	seed(t, st, longText)
	e := newTestEngine(t, st, BatchOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ProcessAll(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

// flakyStore fails the first n batch writes.
type flakyStore struct {
	store.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) UpsertProcessed(ctx context.Context, batch []store.Processed) error {
	f.mu.Lock()
	f.calls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return f.Store.UpsertProcessed(ctx, batch)
}

func TestProcessAllRetriesBatchWrite(t *testing.T) {
	st := &flakyStore{Store: memstore.New(), failures: 2}
	seed(t, st, longText)
	e := newTestEngine(t, st, BatchOptions{FlushDelay: time.Millisecond})

	stats, err := e.ProcessAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 3, st.calls)
}

func TestProcessAllGivesUpAfterAttempts(t *testing.T) {
	st := &flakyStore{Store: memstore.New(), failures: 10}
	seed(t, st, longText)
	e := newTestEngine(t, st, BatchOptions{FlushAttempts: 2, FlushDelay: time.Millisecond})

	_, err := e.ProcessAll(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, 2, st.calls)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	e := newTestEngine(t, st, BatchOptions{})

	stats, err := e.Import(ctx, []store.Article{
		{URL: "https://apa.az/1", Text: "Bakı"},
		{URL: "https://apa.az/1", Text: "Bakı"},
		{URL: "https://apa.az/2", Text: " "},
		{ID: "custom", URL: "https://apa.az/3", Text: "Gəncə"},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Inserted: 2, Duplicates: 1, Invalid: 1}, stats)

	a, err := st.GetArticle(ctx, "custom")
	require.NoError(t, err)
	assert.False(t, a.ParseDate.IsZero())
}

func TestProcessedLookups(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, memstore.New(), BatchOptions{})

	p, err := e.AddArticle(ctx, ArticleInput{URL: "https://apa.az/xeber/9", Title: "Gəncə", Text: "Gəncədə yağış yağır."})
	require.NoError(t, err)

	got, err := e.Processed(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.URL, got.URL)
	require.Len(t, got.Entities, 1)
	assert.Equal(t, "gəncə", got.Entities[0].Lemma)

	_, err = e.Processed(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	all, err := e.ListProcessed(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Same(t, e.store, e.Store())
}
