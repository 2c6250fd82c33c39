// Package sqlite opens the single-file store used by the local build target.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bookmarkai/bookmark-server/internal/store/sqlstore"
)

//go:embed schema.sql
var schema string

// Open opens (or creates) a SQLite database at the given path with WAL journaling and
// foreign keys enabled. A single connection serialises writers.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens path and applies the schema.
func New(ctx context.Context, path, prefix string) (*sqlstore.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	s := sqlstore.New(db, sqlstore.SQLite, prefix)
	if err := s.ApplySchema(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
