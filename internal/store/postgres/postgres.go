// Package postgres opens the PostgreSQL-backed store used by the cloud build targets.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bookmarkai/bookmark-server/internal/store/sqlstore"
)

//go:embed schema.sql
var schema string

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// NewWithDB wraps db; prefix namespaces every table.
func NewWithDB(db *sql.DB, prefix string) *sqlstore.Store {
	return sqlstore.New(db, sqlstore.Postgres, prefix)
}

// Bootstrap creates any missing tables and indexes.
func Bootstrap(ctx context.Context, s *sqlstore.Store) error {
	return s.ApplySchema(ctx, schema)
}
