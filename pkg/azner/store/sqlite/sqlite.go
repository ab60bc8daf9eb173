// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/normalize"
	"github.com/cognicore/azner/pkg/azner/store"
)

type sqliteStore struct {
	db *sql.DB
}

// connPragmas run on every pooled connection the driver opens.
const connPragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + connPragmas
	}
	return path + "?" + connPragmas
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled
// and creates the schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	source TEXT,
	url TEXT UNIQUE NOT NULL,
	title TEXT,
	author TEXT,
	section TEXT,
	tags TEXT,
	parse_date TEXT,
	article_date TEXT,
	text TEXT
);

CREATE TABLE IF NOT EXISTS processed_articles (
	id TEXT PRIMARY KEY,
	source TEXT,
	url TEXT NOT NULL,
	title TEXT,
	author TEXT,
	section TEXT,
	tags TEXT,
	parse_date TEXT,
	article_date TEXT,
	text TEXT,
	keywords TEXT,
	processed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_at ON processed_articles(processed_at);

CREATE TABLE IF NOT EXISTS article_entities (
	article_id TEXT NOT NULL,
	ord INTEGER NOT NULL,
	kind TEXT NOT NULL,
	lemma TEXT NOT NULL,
	surface TEXT NOT NULL,
	subtype TEXT,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	score REAL NOT NULL,
	occurrences INTEGER NOT NULL,
	position TEXT,
	PRIMARY KEY(article_id, ord),
	FOREIGN KEY(article_id) REFERENCES processed_articles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entities_kind_lemma ON article_entities(kind, lemma);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// InsertArticle stores a new source article.
func (s *sqliteStore) InsertArticle(ctx context.Context, a store.Article) error {
	if a.ID == "" || a.URL == "" {
		return fmt.Errorf("insert article: id and url are required: %w", internalerr.ErrInvalidInput)
	}
	tags, err := encodeStrings(a.Tags)
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO articles (id, source, url, title, author, section, tags, parse_date, article_date, text)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING;
`
	res, err := s.db.ExecContext(ctx, stmt,
		a.ID, a.Source, a.URL, a.Title, a.Author, a.Section, tags,
		formatTime(a.ParseDate), formatTime(a.ArticleDate), a.Text,
	)
	if err != nil {
		return fmt.Errorf("insert article %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("insert article %s (%s): %w", a.ID, a.URL, internalerr.ErrDuplicate)
	}
	return nil
}

const articleColumns = `id, source, url, title, author, section, tags, parse_date, article_date, text`

// GetArticle returns a source article by ID.
func (s *sqliteStore) GetArticle(ctx context.Context, id string) (store.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id=?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Article{}, fmt.Errorf("article %s: %w", id, internalerr.ErrNotFound)
	}
	return a, err
}

// GetArticleByURL returns a source article by URL.
func (s *sqliteStore) GetArticleByURL(ctx context.Context, url string) (store.Article, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE url=?`, url)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Article{}, false, nil
	}
	if err != nil {
		return store.Article{}, false, err
	}
	return a, true, nil
}

// ListArticles returns source articles in ID order.
func (s *sqliteStore) ListArticles(ctx context.Context, limit int) ([]store.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertProcessed writes a batch of processed articles in one transaction,
// replacing earlier results for the same IDs.
func (s *sqliteStore) UpsertProcessed(ctx context.Context, batch []store.Processed) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO processed_articles (id, source, url, title, author, section, tags, parse_date, article_date, text, keywords, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source=excluded.source,
	url=excluded.url,
	title=excluded.title,
	author=excluded.author,
	section=excluded.section,
	tags=excluded.tags,
	parse_date=excluded.parse_date,
	article_date=excluded.article_date,
	text=excluded.text,
	keywords=excluded.keywords,
	processed_at=excluded.processed_at;
`
	for _, p := range batch {
		if p.ID == "" {
			return fmt.Errorf("upsert processed: empty id: %w", internalerr.ErrInvalidInput)
		}
		tags, err := encodeStrings(p.Tags)
		if err != nil {
			return err
		}
		keywords, err := encodeStrings(p.Keywords)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt,
			p.ID, p.Source, p.URL, p.Title, p.Author, p.Section, tags,
			formatTime(p.ParseDate), formatTime(p.ArticleDate), p.Text,
			keywords, formatTime(p.ProcessedAt),
		); err != nil {
			return fmt.Errorf("upsert processed %s: %w", p.ID, err)
		}
		if err := replaceEntities(ctx, tx, p.ID, p.Entities); err != nil {
			return fmt.Errorf("upsert processed %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func replaceEntities(ctx context.Context, tx *sql.Tx, articleID string, ents []normalize.Entity) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM article_entities WHERE article_id=?`, articleID); err != nil {
		return err
	}
	if len(ents) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO article_entities (article_id, ord, kind, lemma, surface, subtype, start_offset, end_offset, score, occurrences, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range ents {
		var subtype sql.NullString
		if e.Subtype != nil {
			subtype = sql.NullString{String: *e.Subtype, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, articleID, i, e.Kind, e.Lemma, e.Surface, subtype,
			e.Start, e.End, e.Score, e.Occurrences, e.Position); err != nil {
			return err
		}
	}
	return nil
}

const processedColumns = articleColumns + `, keywords, processed_at`

// GetProcessed returns a processed article with its entities.
func (s *sqliteStore) GetProcessed(ctx context.Context, id string) (store.Processed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+processedColumns+` FROM processed_articles WHERE id=?`, id)
	p, err := scanProcessed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Processed{}, fmt.Errorf("processed article %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Processed{}, err
	}
	p.Entities, err = s.loadEntities(ctx, id)
	return p, err
}

// ListProcessed returns processed articles ordered by processing time.
func (s *sqliteStore) ListProcessed(ctx context.Context, limit int) ([]store.Processed, error) {
	query := `SELECT ` + processedColumns + ` FROM processed_articles ORDER BY processed_at, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var out []store.Processed
	for rows.Next() {
		p, err := scanProcessed(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		ents, err := s.loadEntities(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Entities = ents
	}
	return out, nil
}

func (s *sqliteStore) loadEntities(ctx context.Context, articleID string) ([]normalize.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT kind, lemma, surface, subtype, start_offset, end_offset, score, occurrences, position
FROM article_entities WHERE article_id=? ORDER BY ord`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ents := []normalize.Entity{}
	for rows.Next() {
		var e normalize.Entity
		var subtype, position sql.NullString
		if err := rows.Scan(&e.Kind, &e.Lemma, &e.Surface, &subtype, &e.Start, &e.End, &e.Score, &e.Occurrences, &position); err != nil {
			return nil, err
		}
		if subtype.Valid {
			st := subtype.String
			e.Subtype = &st
		}
		e.Position = position.String
		ents = append(ents, e)
	}
	return ents, rows.Err()
}

// EntityStats aggregates entities per (kind, lemma).
func (s *sqliteStore) EntityStats(ctx context.Context) ([]store.EntityStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT kind, lemma, MIN(surface), COALESCE(MAX(subtype), ''),
	COUNT(DISTINCT article_id), SUM(occurrences), AVG(score)
FROM article_entities
GROUP BY kind, lemma
ORDER BY kind, lemma`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.EntityStat
	for rows.Next() {
		var st store.EntityStat
		if err := rows.Scan(&st.Kind, &st.Lemma, &st.Surface, &st.Subtype, &st.Articles, &st.Occurrences, &st.MeanScore); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (store.Article, error) {
	var a store.Article
	var source, title, author, section, tags, parseDate, articleDate, text sql.NullString
	if err := row.Scan(&a.ID, &source, &a.URL, &title, &author, &section, &tags, &parseDate, &articleDate, &text); err != nil {
		return store.Article{}, err
	}
	return fillArticle(a, source, title, author, section, tags, parseDate, articleDate, text)
}

func scanProcessed(row scanner) (store.Processed, error) {
	var a store.Article
	var source, title, author, section, tags, parseDate, articleDate, text, keywords sql.NullString
	var processedAt string
	if err := row.Scan(&a.ID, &source, &a.URL, &title, &author, &section, &tags, &parseDate, &articleDate, &text,
		&keywords, &processedAt); err != nil {
		return store.Processed{}, err
	}
	a, err := fillArticle(a, source, title, author, section, tags, parseDate, articleDate, text)
	if err != nil {
		return store.Processed{}, err
	}
	p := store.Processed{Article: a}
	if p.Keywords, err = decodeStrings(keywords.String); err != nil {
		return store.Processed{}, err
	}
	if p.ProcessedAt, err = parseTime(processedAt); err != nil {
		return store.Processed{}, err
	}
	return p, nil
}

func fillArticle(a store.Article, source, title, author, section, tags, parseDate, articleDate, text sql.NullString) (store.Article, error) {
	a.Source = source.String
	a.Title = title.String
	a.Author = author.String
	a.Section = section.String
	a.Text = text.String

	var err error
	if a.Tags, err = decodeStrings(tags.String); err != nil {
		return store.Article{}, err
	}
	if a.ParseDate, err = parseTime(parseDate.String); err != nil {
		return store.Article{}, err
	}
	if a.ArticleDate, err = parseTime(articleDate.String); err != nil {
		return store.Article{}, err
	}
	return a, nil
}

func encodeStrings(vals []string) (string, error) {
	if len(vals) == 0 {
		return "", nil
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil, fmt.Errorf("decode list %q: %w", raw, err)
	}
	return vals, nil
}

// timeLayout has fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
