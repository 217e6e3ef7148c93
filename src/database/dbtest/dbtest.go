// Package dbtest opens throwaway SQLite warehouses for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/database"
)

// Path returns a fresh, migrated SQLite warehouse file inside t.TempDir().
func Path(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	if err := database.RunMigrations(config.DriverSQLite, path); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return path
}

// OpenPath opens another handle on an existing warehouse file, the way a second
// process would.
func OpenPath(t testing.TB, path string) *database.Warehouse {
	t.Helper()
	w, err := database.Open(context.Background(), config.DriverSQLite, path)
	if err != nil {
		t.Fatalf("opening warehouse: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

// New returns an open handle on a fresh, migrated warehouse.
func New(t testing.TB) *database.Warehouse {
	t.Helper()
	return OpenPath(t, Path(t))
}
