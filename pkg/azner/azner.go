// Package azner extracts and normalizes named entities from Azerbaijani
// news articles and keeps the results in an article store.
//
// Engine is the facade used by the CLI and the HTTP server:
//   - Extract runs one text through preprocessing and the ingest pipeline.
//   - AddArticle stores a new article and its extraction result.
//   - ProcessAll extracts entities for every stored source article in
//     batches.
package azner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"dario.cat/mergo"
	"github.com/avast/retry-go/v4"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/cognicore/azner/internal/logger"
	"github.com/cognicore/azner/pkg/azner/ingest"
	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/store"
	"github.com/cognicore/azner/pkg/azner/taxonomy"
)

// Extractor is satisfied by *ingest.Pipeline.
type Extractor interface {
	ExtractFromText(ctx context.Context, text string) (ingest.Result, error)
}

// BatchOptions tune ProcessAll. Zero fields take the defaults.
type BatchOptions struct {
	// BatchSize is the number of processed articles written per flush.
	BatchSize int
	// MinTextLength skips articles whose preprocessed text has fewer runes.
	// Zero takes the default; a negative value disables the check.
	MinTextLength int
	// FlushAttempts bounds the retries of a failed batch write.
	FlushAttempts uint
	FlushDelay    time.Duration
}

// DefaultBatchOptions returns the batch settings used for zero fields.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchSize:     100,
		MinTextLength: 50,
		FlushAttempts: 3,
		FlushDelay:    500 * time.Millisecond,
	}
}

// Options configures an Engine
type Options struct {
	Store    store.Store
	Pipeline Extractor
	Batch    BatchOptions
}

// Engine ties the extraction pipeline to the article store.
type Engine struct {
	store    store.Store
	pipeline Extractor
	batch    BatchOptions
	ids      *store.IDGenerator
	validate *validator.Validate
	now      func() time.Time
	log      *logrus.Logger
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Pipeline == nil {
		return nil, fmt.Errorf("new engine: store and pipeline are required: %w", internalerr.ErrInvalidInput)
	}
	if err := mergo.Merge(&opts.Batch, DefaultBatchOptions()); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	return &Engine{
		store:    opts.Store,
		pipeline: opts.Pipeline,
		batch:    opts.Batch,
		ids:      store.NewIDGenerator(),
		validate: validator.New(),
		now:      time.Now,
		log:      logger.GetLogger(),
	}, nil
}

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the article store.
func (e *Engine) Store() store.Store {
	return e.store
}

// Processed returns the stored extraction result of one article.
func (e *Engine) Processed(ctx context.Context, id string) (store.Processed, error) {
	return e.store.GetProcessed(ctx, id)
}

// ListProcessed returns up to limit processed articles, all when limit <= 0.
func (e *Engine) ListProcessed(ctx context.Context, limit int) ([]store.Processed, error) {
	out, err := e.store.ListProcessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list processed: %w", err)
	}
	return out, nil
}

// Extraction is the result of Extract. Entity offsets refer to Text, the
// preprocessed input.
type Extraction struct {
	Text string `json:"text"`
	ingest.Result
}

// Extract preprocesses text and extracts its entities.
func (e *Engine) Extract(ctx context.Context, text string) (Extraction, error) {
	clean := ingest.Preprocess(text)
	res, err := e.pipeline.ExtractFromText(ctx, clean)
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{Text: clean, Result: res}, nil
}

// ArticleInput is a new article submitted for storage and extraction.
type ArticleInput struct {
	URL         string    `json:"url" validate:"required,url"`
	Title       string    `json:"title" validate:"required"`
	Text        string    `json:"text" validate:"required"`
	Source      string    `json:"source"`
	Author      string    `json:"author"`
	Section     string    `json:"section"`
	Tags        []string  `json:"tags"`
	ArticleDate time.Time `json:"article_date"`
}

// AddArticle validates and stores a new source article, extracts its
// entities and stores the processed article. A URL that is already stored
// yields internalerr.ErrDuplicate.
func (e *Engine) AddArticle(ctx context.Context, in ArticleInput) (store.Processed, error) {
	if err := e.validate.Struct(in); err != nil {
		return store.Processed{}, fmt.Errorf("add article: %v: %w", err, internalerr.ErrInvalidInput)
	}

	now := e.now()
	a := store.Article{
		ID:          e.ids.New(now),
		Source:      in.Source,
		URL:         in.URL,
		Title:       in.Title,
		Author:      in.Author,
		Section:     in.Section,
		Tags:        in.Tags,
		ParseDate:   now,
		ArticleDate: in.ArticleDate,
		Text:        in.Text,
	}
	if err := e.store.InsertArticle(ctx, a); err != nil {
		return store.Processed{}, fmt.Errorf("add article: %w", err)
	}

	text := ingest.Preprocess(a.Text)
	res, err := e.pipeline.ExtractFromText(ctx, text)
	if err != nil {
		return store.Processed{}, fmt.Errorf("add article %s: %w", a.ID, err)
	}
	p := e.processed(a, text, res)
	if err := e.flush(ctx, []store.Processed{p}); err != nil {
		return store.Processed{}, fmt.Errorf("add article %s: %w", a.ID, err)
	}

	e.log.WithFields(logrus.Fields{
		"id":       a.ID,
		"url":      a.URL,
		"entities": len(p.Entities),
	}).Info("article added")
	return p, nil
}

// ImportStats counts the outcome of Import.
type ImportStats struct {
	Inserted   int
	Duplicates int
	Invalid    int
}

// Import stores source articles, assigning IDs and parse dates where they
// are missing. Duplicates and articles without URL or text are counted and
// skipped.
func (e *Engine) Import(ctx context.Context, articles []store.Article) (ImportStats, error) {
	var stats ImportStats
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if strings.TrimSpace(a.URL) == "" || strings.TrimSpace(a.Text) == "" {
			stats.Invalid++
			continue
		}
		now := e.now()
		if a.ID == "" {
			a.ID = e.ids.New(now)
		}
		if a.ParseDate.IsZero() {
			a.ParseDate = now
		}
		err := e.store.InsertArticle(ctx, a)
		switch {
		case errors.Is(err, internalerr.ErrDuplicate):
			e.log.WithField("url", a.URL).Debug("article already stored")
			stats.Duplicates++
		case err != nil:
			return stats, fmt.Errorf("import %s: %w", a.URL, err)
		default:
			stats.Inserted++
		}
	}
	return stats, nil
}

// Stats summarizes a ProcessAll run.
type Stats struct {
	Total         int           `json:"total_articles"`
	Processed     int           `json:"processed_articles"`
	Skipped       int           `json:"skipped_articles"`
	Failed        int           `json:"failed_articles"`
	Persons       int           `json:"total_persons"`
	Organisations int           `json:"total_organisations"`
	Locations     int           `json:"total_locations"`
	Duration      time.Duration `json:"processing_time"`
}

// ProcessAll extracts entities from up to limit stored source articles
// (all when limit <= 0) and writes the results in batches. Articles with
// too little text are skipped; articles whose extraction fails are logged
// and counted as failed. Only store and context errors abort the run.
func (e *Engine) ProcessAll(ctx context.Context, limit int) (Stats, error) {
	start := e.now()
	articles, err := e.store.ListArticles(ctx, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("list articles: %w", err)
	}

	stats := Stats{Total: len(articles)}
	e.log.WithField("articles", stats.Total).Info("processing articles")

	batch := make([]store.Processed, 0, e.batch.BatchSize)
	for i, a := range articles {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		log := e.log.WithFields(logrus.Fields{"n": i + 1, "of": stats.Total, "id": a.ID})

		text := ingest.Preprocess(a.Text)
		if utf8.RuneCountInString(text) < e.batch.MinTextLength {
			log.Debug("skipped: text too short")
			stats.Skipped++
			continue
		}

		res, err := e.pipeline.ExtractFromText(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.WithError(err).Warn("extraction failed")
			stats.Failed++
			continue
		}

		p := e.processed(a, text, res)
		batch = append(batch, p)
		stats.Processed++
		for _, ent := range p.Entities {
			switch ent.Kind {
			case taxonomy.KindPerson:
				stats.Persons++
			case taxonomy.KindOrganization:
				stats.Organisations++
			case taxonomy.KindLocation:
				stats.Locations++
			}
		}
		log.WithField("entities", len(p.Entities)).Debug("processed")

		if len(batch) >= e.batch.BatchSize {
			if err := e.flush(ctx, batch); err != nil {
				return stats, err
			}
			batch = batch[:0]
		}
	}
	if err := e.flush(ctx, batch); err != nil {
		return stats, err
	}

	stats.Duration = e.now().Sub(start)
	e.log.WithFields(logrus.Fields{
		"processed": stats.Processed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
		"duration":  stats.Duration,
	}).Info("processing finished")
	return stats, nil
}

func (e *Engine) processed(a store.Article, text string, res ingest.Result) store.Processed {
	a.Text = text
	return store.Processed{
		Article:     a,
		Entities:    res.Entities,
		Keywords:    res.Tokens,
		ProcessedAt: e.now(),
	}
}

// flush writes a batch, retrying transient store failures.
func (e *Engine) flush(ctx context.Context, batch []store.Processed) error {
	if len(batch) == 0 {
		return nil
	}
	err := retry.Do(
		func() error {
			return e.store.UpsertProcessed(ctx, batch)
		},
		retry.Context(ctx),
		retry.Attempts(e.batch.FlushAttempts),
		retry.Delay(e.batch.FlushDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, internalerr.ErrInvalidInput)
		}),
		retry.OnRetry(func(n uint, err error) {
			e.log.WithError(err).Warnf("retrying batch write, attempt #%d", n+1)
		}),
	)
	if err != nil {
		return fmt.Errorf("write %d processed articles: %w", len(batch), err)
	}
	e.log.WithField("articles", len(batch)).Info("batch saved")
	return nil
}
