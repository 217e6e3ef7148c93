package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/database"
)

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.db")
	if err := database.RunMigrations(config.DriverSQLite, path); err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if err := database.RunMigrations(config.DriverSQLite, path); err != nil {
		t.Fatalf("second migration should be a no-op: %v", err)
	}

	w, err := database.Open(context.Background(), config.DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	for _, table := range []string{"sales_transactions", "processed_files", "ingest_runs"} {
		var n int
		err := w.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("checking %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := database.Open(context.Background(), "oracle", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		in     string
		want   string
	}{
		{config.DriverSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{config.DriverPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{config.DriverPostgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{config.DriverPostgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := database.Rebind(tt.driver, tt.in); got != tt.want {
			t.Errorf("Rebind(%s, %q) = %q, want %q", tt.driver, tt.in, got, tt.want)
		}
	}
}
