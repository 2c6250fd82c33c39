// Package sqlstore implements store.Store over database/sql for both supported dialects.
// Queries are written with $n placeholders in ascending order and {table} names;
// the dialect rewrites them for the driver.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/bookmarkai/bookmark-server/internal/store"
)

// Dialect captures the driver differences the queries care about.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

var placeholder = regexp.MustCompile(`\$\d+`)

// Store is a database/sql backed store.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  *strings.Replacer
}

// New wraps db. prefix namespaces every table (e.g. "test_").
func New(db *sql.DB, dialect Dialect, prefix string) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		tables: strings.NewReplacer(
			"{users}", prefix+"users",
			"{folders}", prefix+"user_folders",
			"{bookmarks}", prefix+"bookmarks",
			"{conversations}", prefix+"conversations",
			"{messages}", prefix+"conversation_messages",
		),
	}
}

// q resolves table names and placeholders for the dialect.
func (s *Store) q(query string) string {
	out := s.tables.Replace(query)
	if s.dialect == SQLite {
		out = placeholder.ReplaceAllString(out, "?")
	}
	return out
}

// ApplySchema executes each ;-terminated statement of ddl after table substitution.
func (s *Store) ApplySchema(ctx context.Context, ddl string) error {
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, s.tables.Replace(stmt)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Users() store.Users                 { return &users{s} }
func (s *Store) Bookmarks() store.Bookmarks         { return &bookmarks{s} }
func (s *Store) Conversations() store.Conversations { return &conversations{s} }

// DB exposes the underlying handle for lifecycle management.
func (s *Store) DB() *sql.DB { return s.db }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
