// Package dbtest opens throwaway SQLite databases with the production
// schema for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/iliyamo/cinema-ticketing/internal/database"
)

// Open returns a migrated SQLite database stored under t.TempDir().  The
// database is closed when the test finishes.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "cinema.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
