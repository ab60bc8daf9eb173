// Package storetest holds behaviour tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/normalize"
	"github.com/cognicore/azner/pkg/azner/store"
)

// Factory opens an empty store for one test.
type Factory func(t *testing.T) store.Store

// Run exercises st through the whole store.Store contract.
func Run(t *testing.T, open Factory) {
	t.Run("ArticleRoundTrip", func(t *testing.T) { testArticleRoundTrip(t, open(t)) })
	t.Run("DuplicateArticle", func(t *testing.T) { testDuplicateArticle(t, open(t)) })
	t.Run("MissingRecords", func(t *testing.T) { testMissingRecords(t, open(t)) })
	t.Run("ListArticlesOrderAndLimit", func(t *testing.T) { testListArticles(t, open(t)) })
	t.Run("ProcessedRoundTrip", func(t *testing.T) { testProcessedRoundTrip(t, open(t)) })
	t.Run("ProcessedReplace", func(t *testing.T) { testProcessedReplace(t, open(t)) })
	t.Run("EntityStats", func(t *testing.T) { testEntityStats(t, open(t)) })
}

var (
	parseDate   = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	articleDate = time.Date(2025, 2, 28, 18, 30, 0, 0, time.UTC)
)

func article(id, url string) store.Article {
	return store.Article{
		ID:          id,
		Source:      "apa.az",
		URL:         url,
		Title:       "Bakıda forum keçirilib",
		Author:      "Redaksiya",
		Section:     "siyasət",
		Tags:        []string{"forum", "Bakı"},
		ParseDate:   parseDate,
		ArticleDate: articleDate,
		Text:        "Bakıda beynəlxalq forum keçirilib.",
	}
}

func strPtr(s string) *string { return &s }

func testArticleRoundTrip(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	a := article("01A", "https://apa.az/1")
	if err := st.InsertArticle(ctx, a); err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}

	got, err := st.GetArticle(ctx, "01A")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if got.Title != a.Title || got.Source != a.Source || got.Text != a.Text || got.Section != a.Section {
		t.Errorf("GetArticle = %+v, want %+v", got, a)
	}
	if !got.ParseDate.Equal(parseDate) || !got.ArticleDate.Equal(articleDate) {
		t.Errorf("dates = %v / %v", got.ParseDate, got.ArticleDate)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "Bakı" {
		t.Errorf("tags = %v", got.Tags)
	}

	byURL, found, err := st.GetArticleByURL(ctx, a.URL)
	if err != nil || !found {
		t.Fatalf("GetArticleByURL: found=%v err=%v", found, err)
	}
	if byURL.ID != "01A" {
		t.Errorf("GetArticleByURL ID = %q", byURL.ID)
	}
}

func testDuplicateArticle(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	if err := st.InsertArticle(ctx, article("01A", "https://apa.az/1")); err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}
	err := st.InsertArticle(ctx, article("01B", "https://apa.az/1"))
	if !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("same URL: err = %v, want ErrDuplicate", err)
	}
	err = st.InsertArticle(ctx, article("01A", "https://apa.az/2"))
	if !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("same ID: err = %v, want ErrDuplicate", err)
	}
	err = st.InsertArticle(ctx, store.Article{ID: "01C"})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("no URL: err = %v, want ErrInvalidInput", err)
	}
}

func testMissingRecords(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	if _, err := st.GetArticle(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetArticle err = %v, want ErrNotFound", err)
	}
	if _, err := st.GetProcessed(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetProcessed err = %v, want ErrNotFound", err)
	}
	if _, found, err := st.GetArticleByURL(ctx, "https://nope"); err != nil || found {
		t.Errorf("GetArticleByURL found=%v err=%v", found, err)
	}
}

func testListArticles(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	for _, id := range []string{"03", "01", "02"} {
		if err := st.InsertArticle(ctx, article(id, "https://apa.az/"+id)); err != nil {
			t.Fatalf("InsertArticle %s: %v", id, err)
		}
	}

	all, err := st.ListArticles(ctx, 0)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(all) != 3 || all[0].ID != "01" || all[2].ID != "03" {
		t.Errorf("ListArticles order = %v", ids(all))
	}

	limited, err := st.ListArticles(ctx, 2)
	if err != nil {
		t.Fatalf("ListArticles limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 articles, got %d", len(limited))
	}
}

func processed(id string, at time.Time, ents ...normalize.Entity) store.Processed {
	return store.Processed{
		Article:     article(id, "https://apa.az/"+id),
		Entities:    ents,
		Keywords:    []string{"forum"},
		ProcessedAt: at,
	}
}

func testProcessedRoundTrip(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	baku := normalize.Entity{Surface: "Bakıda", Lemma: "bakı", Kind: "LOC", Subtype: strPtr("city"), Start: 0, End: 7, Score: 0.97, Occurrences: 2}
	aliyev := normalize.Entity{Surface: "İlham Əliyev", Lemma: "ilham əliyev", Kind: "PER", Start: 10, End: 24, Score: 0.99, Occurrences: 1, Position: "prezident"}

	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	batch := []store.Processed{
		processed("02", now.Add(time.Second), baku),
		processed("01", now, aliyev, baku),
	}
	if err := st.UpsertProcessed(ctx, batch); err != nil {
		t.Fatalf("UpsertProcessed: %v", err)
	}

	got, err := st.GetProcessed(ctx, "01")
	if err != nil {
		t.Fatalf("GetProcessed: %v", err)
	}
	if len(got.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(got.Entities))
	}
	if got.Entities[0].Lemma != "ilham əliyev" || got.Entities[0].Subtype != nil || got.Entities[0].Position != "prezident" {
		t.Errorf("first entity = %+v", got.Entities[0])
	}
	if got.Entities[1].Subtype == nil || *got.Entities[1].Subtype != "city" || got.Entities[1].Occurrences != 2 {
		t.Errorf("second entity = %+v", got.Entities[1])
	}
	if !got.ProcessedAt.Equal(now) || len(got.Keywords) != 1 {
		t.Errorf("processed meta = %v %v", got.ProcessedAt, got.Keywords)
	}

	list, err := st.ListProcessed(ctx, 0)
	if err != nil {
		t.Fatalf("ListProcessed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "01" || list[1].ID != "02" {
		t.Errorf("ListProcessed order = %v", processedIDs(list))
	}
	if len(list[1].Entities) != 1 {
		t.Errorf("ListProcessed entities = %d", len(list[1].Entities))
	}
}

func testProcessedReplace(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	first := processed("01", now, normalize.Entity{Lemma: "bakı", Surface: "Bakı", Kind: "LOC", Score: 0.9, Occurrences: 1})
	if err := st.UpsertProcessed(ctx, []store.Processed{first}); err != nil {
		t.Fatalf("UpsertProcessed: %v", err)
	}
	second := processed("01", now.Add(time.Minute))
	second.Title = "Yenilənib"
	if err := st.UpsertProcessed(ctx, []store.Processed{second}); err != nil {
		t.Fatalf("UpsertProcessed again: %v", err)
	}

	got, err := st.GetProcessed(ctx, "01")
	if err != nil {
		t.Fatalf("GetProcessed: %v", err)
	}
	if got.Title != "Yenilənib" || len(got.Entities) != 0 {
		t.Errorf("replace failed: title=%q entities=%d", got.Title, len(got.Entities))
	}
}

func testEntityStats(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	ganja := func(score float64) normalize.Entity {
		return normalize.Entity{Surface: "Gəncədə", Lemma: "gəncə", Kind: "LOC", Score: score, Occurrences: 2}
	}
	batch := []store.Processed{
		processed("01", now, ganja(0.8)),
		processed("02", now, ganja(0.6), normalize.Entity{Surface: "Bakı", Lemma: "bakı", Kind: "LOC", Subtype: strPtr("city"), Score: 0.9, Occurrences: 1}),
	}
	if err := st.UpsertProcessed(ctx, batch); err != nil {
		t.Fatalf("UpsertProcessed: %v", err)
	}

	stats, err := st.EntityStats(ctx)
	if err != nil {
		t.Fatalf("EntityStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 stats, got %+v", stats)
	}
	// Ordered by kind then lemma.
	if stats[0].Lemma != "bakı" || stats[0].Subtype != "city" || stats[0].Articles != 1 {
		t.Errorf("bakı stat = %+v", stats[0])
	}
	g := stats[1]
	if g.Lemma != "gəncə" || g.Subtype != "" || g.Articles != 2 || g.Occurrences != 4 || g.Surface != "Gəncədə" {
		t.Errorf("gəncə stat = %+v", g)
	}
	if g.MeanScore < 0.69 || g.MeanScore > 0.71 {
		t.Errorf("gəncə mean score = %v", g.MeanScore)
	}
}

func ids(as []store.Article) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func processedIDs(ps []store.Processed) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
