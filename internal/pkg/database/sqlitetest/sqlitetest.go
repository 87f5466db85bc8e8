// Package sqlitetest opens throwaway in-memory databases for repository tests.
package sqlitetest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/minishop/commerce-services/internal/pkg/database/postgres"
)

// Open returns an in-memory SQLite database with schema applied. A single
// connection is kept open so every query and transaction sees the same data.
func Open(t testing.TB, schema string) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := postgres.Migrate(context.Background(), db, schema); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
