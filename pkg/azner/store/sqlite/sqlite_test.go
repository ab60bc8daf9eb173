package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/azner/pkg/azner/store"
	"github.com/cognicore/azner/pkg/azner/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		return st
	})
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := st.InsertArticle(ctx, store.Article{ID: "01", URL: "https://apa.az/1", Text: "Bakı"}); err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	a, err := st.GetArticle(ctx, "01")
	if err != nil {
		t.Fatalf("GetArticle after reopen: %v", err)
	}
	if a.Text != "Bakı" || !a.ParseDate.IsZero() {
		t.Errorf("article after reopen = %+v", a)
	}
}

func TestSQLitePragmasOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()
	db := st.(*sqliteStore).db

	// Held connections are distinct, so the pool has to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		c, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn %d: %v", i, err)
		}
		defer c.Close()
		conns = append(conns, c)
	}

	for i, c := range conns {
		var fk int
		if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d: foreign_keys: %v", i, err)
		}
		if fk != 1 {
			t.Errorf("conn %d: foreign_keys = %d, want 1", i, fk)
		}

		var mode string
		if err := c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("conn %d: journal_mode: %v", i, err)
		}
		if mode != "wal" {
			t.Errorf("conn %d: journal_mode = %q, want wal", i, mode)
		}

		_, err := c.ExecContext(ctx, `
INSERT INTO article_entities (article_id, ord, kind, lemma, surface, start_offset, end_offset, score, occurrences)
VALUES ('missing', 0, 'LOC', 'bakı', 'Bakı', 0, 5, 0.9, 1)`)
		if err == nil {
			t.Errorf("conn %d: entity without a processed article was accepted", i)
		}
	}
}

func TestDSNAppendsPragmas(t *testing.T) {
	if got := dsn("news.db"); !strings.HasPrefix(got, "news.db?_pragma=") {
		t.Errorf("dsn(news.db) = %q", got)
	}
	if got := dsn("file:news.db?mode=rwc"); !strings.HasPrefix(got, "file:news.db?mode=rwc&_pragma=") {
		t.Errorf("dsn with query = %q", got)
	}
}
