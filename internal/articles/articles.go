// Package articles reads article dumps and writes extraction results as
// JSON files.
package articles

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cognicore/azner/internal/logger"
	"github.com/cognicore/azner/pkg/azner/store"
)

// Item is one line of an article dump, as exported from the scrapers'
// document database.
type Item struct {
	ID          string   `json:"id"`
	MongoID     string   `json:"_id"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	ParseDate   string   `json:"parse_date"`
	ArticleDate string   `json:"article_date"`
	Text        string   `json:"text"`
	Section     string   `json:"section"`
	Tags        []string `json:"tags"`
}

// Article converts the item. Dates that do not parse are left zero.
func (it Item) Article() store.Article {
	id := it.ID
	if id == "" {
		id = it.MongoID
	}
	return store.Article{
		ID:          id,
		Source:      it.Source,
		URL:         strings.TrimSpace(it.URL),
		Title:       it.Title,
		Author:      it.Author,
		Section:     it.Section,
		Tags:        it.Tags,
		ParseDate:   ParseDate(it.ParseDate),
		ArticleDate: ParseDate(it.ArticleDate),
		Text:        it.Text,
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseDate parses the date formats seen in scraped articles.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// LoadFromJSONL loads articles from a JSONL file. Malformed lines are
// logged and skipped.
func LoadFromJSONL(path string) ([]store.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	log := logger.GetLogger()
	var out []store.Article
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			log.WithField("line", i+1).WithError(err).Warnf("skipping malformed JSON in %s", path)
			continue
		}
		out = append(out, item.Article())
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid articles found in %s", path)
	}
	return out, nil
}

// WriteJSON writes v as indented JSON without escaping non-ASCII or HTML
// characters.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteJSONFile writes v to path, replacing the file.
func WriteJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
