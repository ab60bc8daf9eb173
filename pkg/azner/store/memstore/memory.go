// Package memstore is an in-memory store.Store for tests and dry runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/normalize"
	"github.com/cognicore/azner/pkg/azner/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	articles  map[string]store.Article
	urlIndex  map[string]string
	processed map[string]store.Processed
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		articles:  make(map[string]store.Article),
		urlIndex:  make(map[string]string),
		processed: make(map[string]store.Processed),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// InsertArticle stores a new source article.
func (s *Store) InsertArticle(ctx context.Context, a store.Article) error {
	if a.ID == "" || a.URL == "" {
		return fmt.Errorf("insert article: id and url are required: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[a.ID]; ok {
		return fmt.Errorf("insert article %s: %w", a.ID, internalerr.ErrDuplicate)
	}
	if _, ok := s.urlIndex[a.URL]; ok {
		return fmt.Errorf("insert article %s (%s): %w", a.ID, a.URL, internalerr.ErrDuplicate)
	}
	s.articles[a.ID] = copyArticle(a)
	s.urlIndex[a.URL] = a.ID
	return nil
}

// GetArticle returns a source article by ID.
func (s *Store) GetArticle(ctx context.Context, id string) (store.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return store.Article{}, fmt.Errorf("article %s: %w", id, internalerr.ErrNotFound)
	}
	return copyArticle(a), nil
}

// GetArticleByURL returns a source article by URL.
func (s *Store) GetArticleByURL(ctx context.Context, url string) (store.Article, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.urlIndex[url]
	if !ok {
		return store.Article{}, false, nil
	}
	return copyArticle(s.articles[id]), true, nil
}

// ListArticles returns source articles in ID order.
func (s *Store) ListArticles(ctx context.Context, limit int) ([]store.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, copyArticle(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertProcessed stores or replaces processed articles.
func (s *Store) UpsertProcessed(ctx context.Context, batch []store.Processed) error {
	for _, p := range batch {
		if p.ID == "" {
			return fmt.Errorf("upsert processed: empty id: %w", internalerr.ErrInvalidInput)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range batch {
		s.processed[p.ID] = copyProcessed(p)
	}
	return nil
}

// GetProcessed returns a processed article by ID.
func (s *Store) GetProcessed(ctx context.Context, id string) (store.Processed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.processed[id]
	if !ok {
		return store.Processed{}, fmt.Errorf("processed article %s: %w", id, internalerr.ErrNotFound)
	}
	return copyProcessed(p), nil
}

// ListProcessed returns processed articles ordered by processing time.
func (s *Store) ListProcessed(ctx context.Context, limit int) ([]store.Processed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Processed, 0, len(s.processed))
	for _, p := range s.processed {
		out = append(out, copyProcessed(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ProcessedAt.Before(out[j].ProcessedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EntityStats aggregates entities per (kind, lemma).
func (s *Store) EntityStats(ctx context.Context) ([]store.EntityStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		stat     store.EntityStat
		articles map[string]struct{}
		scoreSum float64
		rows     int
	}
	byKey := make(map[[2]string]*acc)
	for id, p := range s.processed {
		for _, e := range p.Entities {
			key := [2]string{e.Kind, e.Lemma}
			a, ok := byKey[key]
			if !ok {
				a = &acc{
					stat:     store.EntityStat{Kind: e.Kind, Lemma: e.Lemma, Surface: e.Surface},
					articles: make(map[string]struct{}),
				}
				byKey[key] = a
			}
			if e.Surface < a.stat.Surface {
				a.stat.Surface = e.Surface
			}
			if e.Subtype != nil && *e.Subtype > a.stat.Subtype {
				a.stat.Subtype = *e.Subtype
			}
			a.articles[id] = struct{}{}
			a.stat.Occurrences += e.Occurrences
			a.scoreSum += e.Score
			a.rows++
		}
	}

	out := make([]store.EntityStat, 0, len(byKey))
	for _, a := range byKey {
		a.stat.Articles = len(a.articles)
		a.stat.MeanScore = a.scoreSum / float64(a.rows)
		out = append(out, a.stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Lemma < out[j].Lemma
	})
	return out, nil
}

func copyArticle(a store.Article) store.Article {
	a.Tags = append([]string(nil), a.Tags...)
	return a
}

func copyProcessed(p store.Processed) store.Processed {
	p.Article = copyArticle(p.Article)
	p.Keywords = append([]string(nil), p.Keywords...)
	ents := make([]normalize.Entity, len(p.Entities))
	for i, e := range p.Entities {
		if e.Subtype != nil {
			st := *e.Subtype
			e.Subtype = &st
		}
		ents[i] = e
	}
	p.Entities = ents
	return p
}
