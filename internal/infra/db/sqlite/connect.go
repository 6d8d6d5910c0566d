package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Connect opens a SQLite database file. A single connection serializes writers.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("file:%s%s_foreign_keys=on&_busy_timeout=5000", path, sep)
}

// PathFromURL accepts sqlite:///abs/path.db, sqlite://rel.db and sqlite::memory:.
func PathFromURL(raw string) (string, error) {
	switch {
	case raw == "sqlite::memory:" || raw == "sqlite://:memory:":
		return ":memory:", nil
	case strings.HasPrefix(raw, "sqlite://"):
		p := strings.TrimPrefix(raw, "sqlite://")
		if p == "" {
			return "", fmt.Errorf("sqlite url %q has no path", raw)
		}
		return p, nil
	case strings.HasPrefix(raw, "sqlite:"):
		return strings.TrimPrefix(raw, "sqlite:"), nil
	}
	return "", fmt.Errorf("unexpected sqlite url %q", raw)
}
