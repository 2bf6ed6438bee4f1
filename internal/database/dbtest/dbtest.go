// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/matthieukhl/spatula/internal/config"
	"github.com/matthieukhl/spatula/internal/database"
)

// Open returns a migrated in-memory SQLite database private to t.
func Open(t testing.TB) *database.DB {
	t.Helper()

	cfg := &config.DBConfig{
		Driver:   config.DriverSQLite,
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
		// one connection keeps the shared in-memory database alive and
		// serialises access to it
		MaxOpenConns: 1,
	}
	db, err := database.NewConnection(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// Seed loads the built-in fixture into db.
func Seed(t testing.TB, db *database.DB) *database.SeedSummary {
	t.Helper()

	f, err := database.DefaultFixture()
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	sum, err := db.Seed(context.Background(), f)
	if err != nil {
		t.Fatalf("seed test database: %v", err)
	}
	return sum
}
