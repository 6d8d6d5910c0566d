package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect struct {
	Name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// id comes back through RETURNING instead of LastInsertId
	returning bool
	schema    []string
}

var MySQL = Dialect{
	Name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS analyses (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  input_text LONGTEXT NOT NULL,
  created_at DATETIME(3) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS mentions (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  analysis_id BIGINT NOT NULL,
  brand VARCHAR(255) NOT NULL,
  normalized VARCHAR(255) NOT NULL,
  mention_count INT NOT NULL,
  CONSTRAINT fk_mentions_analysis FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE,
  CONSTRAINT chk_mentions_count CHECK (mention_count > 0),
  INDEX idx_mentions_analysis (analysis_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS extraction_failures (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  analysis_id BIGINT NOT NULL,
  phase VARCHAR(32) NOT NULL,
  kind VARCHAR(32) NOT NULL,
  message TEXT NOT NULL,
  created_at DATETIME(3) NOT NULL,
  INDEX idx_failures_analysis (analysis_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}

var Postgres = Dialect{
	Name:      "postgres",
	numbered:  true,
	returning: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS analyses (
  id BIGSERIAL PRIMARY KEY,
  input_text TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS mentions (
  id BIGSERIAL PRIMARY KEY,
  analysis_id BIGINT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  brand VARCHAR(255) NOT NULL,
  normalized VARCHAR(255) NOT NULL,
  mention_count INTEGER NOT NULL CHECK (mention_count > 0)
)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_analysis ON mentions (analysis_id)`,
		`CREATE TABLE IF NOT EXISTS extraction_failures (
  id BIGSERIAL PRIMARY KEY,
  analysis_id BIGINT NOT NULL,
  phase VARCHAR(32) NOT NULL,
  kind VARCHAR(32) NOT NULL,
  message TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
	},
}

var SQLite = Dialect{
	Name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS analyses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  input_text TEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS mentions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  analysis_id INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  brand TEXT NOT NULL,
  normalized TEXT NOT NULL,
  mention_count INTEGER NOT NULL CHECK (mention_count > 0)
)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_analysis ON mentions (analysis_id)`,
		`CREATE TABLE IF NOT EXISTS extraction_failures (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  analysis_id INTEGER NOT NULL,
  phase TEXT NOT NULL,
  kind TEXT NOT NULL,
  message TEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
	},
}

// Migrate creates the tables of d if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", d.Name, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
