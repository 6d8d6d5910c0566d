// Package db picks the storage backend from a database URL.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/brandcount/internal/infra/db/mysql"
	"github.com/bryanwahyu/brandcount/internal/infra/db/postgres"
	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlite"
	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlstore"
)

// Pool overrides the connection pool defaults of the backend. Zero values keep them.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Scheme returns the backend name of a database URL.
func Scheme(databaseURL string) (string, error) {
	i := strings.Index(databaseURL, ":")
	if i <= 0 {
		return "", fmt.Errorf("database url %q has no scheme", databaseURL)
	}
	switch s := strings.ToLower(databaseURL[:i]); s {
	case "mysql", "sqlite":
		return s, nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database scheme %q", s)
	}
}

// Open connects to the database behind databaseURL and returns its dialect.
func Open(ctx context.Context, databaseURL string, pool Pool) (*sql.DB, sqlstore.Dialect, error) {
	scheme, err := Scheme(databaseURL)
	if err != nil {
		return nil, sqlstore.Dialect{}, err
	}

	var (
		conn    *sql.DB
		dialect sqlstore.Dialect
	)
	switch scheme {
	case "mysql":
		dsn, err := mysql.DSNFromURL(databaseURL)
		if err != nil {
			return nil, dialect, err
		}
		conn, err = mysql.Connect(ctx, dsn)
		if err != nil {
			return nil, dialect, fmt.Errorf("mysql connect: %w", err)
		}
		dialect = sqlstore.MySQL
	case "postgres":
		conn, err = postgres.Connect(ctx, databaseURL)
		if err != nil {
			return nil, dialect, fmt.Errorf("postgres connect: %w", err)
		}
		dialect = sqlstore.Postgres
	case "sqlite":
		path, err := sqlite.PathFromURL(databaseURL)
		if err != nil {
			return nil, dialect, err
		}
		conn, err = sqlite.Connect(ctx, path)
		if err != nil {
			return nil, dialect, fmt.Errorf("sqlite connect: %w", err)
		}
		// sqlite keeps its single connection
		return conn, sqlstore.SQLite, nil
	}

	if pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return conn, dialect, nil
}
