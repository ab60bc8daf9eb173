// Package store persists source articles and their extraction results.
package store

import (
	"context"
	"time"

	"github.com/cognicore/azner/pkg/azner/normalize"
)

// Store is the persistence interface of the article engine. Lookups of
// missing records return internalerr.ErrNotFound; inserting an article whose
// ID or URL is taken returns internalerr.ErrDuplicate.
type Store interface {
	Close() error

	// Source articles
	InsertArticle(ctx context.Context, a Article) error
	GetArticle(ctx context.Context, id string) (Article, error)
	GetArticleByURL(ctx context.Context, url string) (Article, bool, error)
	// ListArticles returns articles in ID order; limit <= 0 means all.
	ListArticles(ctx context.Context, limit int) ([]Article, error)

	// Processed articles
	UpsertProcessed(ctx context.Context, batch []Processed) error
	GetProcessed(ctx context.Context, id string) (Processed, error)
	ListProcessed(ctx context.Context, limit int) ([]Processed, error)

	// EntityStats aggregates stored entities per kind and lemma.
	EntityStats(ctx context.Context) ([]EntityStat, error)
}

// Article is a source news article.
type Article struct {
	ID          string    `json:"id"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Section     string    `json:"section,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ParseDate   time.Time `json:"parse_date"`
	ArticleDate time.Time `json:"article_date"`
	Text        string    `json:"text"`
}

// Processed is an article with its preprocessed text and extracted entities.
type Processed struct {
	Article
	Entities    []normalize.Entity `json:"entities"`
	Keywords    []string           `json:"keywords,omitempty"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// EntityStat summarizes one (kind, lemma) pair across processed articles.
type EntityStat struct {
	Kind    string
	Lemma   string
	Surface string
	// Subtype is empty when no stored mention carried one.
	Subtype     string
	Articles    int
	Occurrences int
	MeanScore   float64
}
