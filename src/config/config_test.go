package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_DRIVER", "BATCH_SIZE", "RUN_INTERVAL", "DEFAULT_TIMEZONE", "COLUMN_MAPPING_PATH", "SOURCE_DIR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Errorf("driver = %q, want sqlite", cfg.DatabaseDriver)
	}
	if cfg.BatchSize != 500 {
		t.Errorf("batch size = %d, want 500", cfg.BatchSize)
	}
	if cfg.RunInterval != 5*time.Minute {
		t.Errorf("interval = %s, want 5m", cfg.RunInterval)
	}
	if cfg.DefaultTimezone != time.UTC {
		t.Errorf("timezone = %v, want UTC", cfg.DefaultTimezone)
	}
	if cfg.SourceDir != "./data" {
		t.Errorf("source dir = %q", cfg.SourceDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DATABASE_DRIVER": "oracle"}},
		{name: "zero batch", env: map[string]string{"BATCH_SIZE": "0"}},
		{name: "bad timezone", env: map[string]string{"DEFAULT_TIMEZONE": "Mars/Olympus"}},
		{name: "postgres without url or parts", env: map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_URL": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.env["DATABASE_URL"] == "" {
				for _, k := range []string{"DATABASE_URL", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB"} {
					t.Setenv(k, "")
					os.Unsetenv(k)
				}
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestPostgresURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")
	t.Setenv("POSTGRES_USER", "etl")
	t.Setenv("POSTGRES_PASSWORD", "s3cr@t")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_DB", "sales")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasPrefix(cfg.DatabaseURL, "postgres://etl:s3cr%40t@db:5432/sales") {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if !strings.Contains(cfg.DatabaseURL, "sslmode=disable") {
		t.Errorf("DatabaseURL missing sslmode: %q", cfg.DatabaseURL)
	}
}

func TestLoadColumnMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	content := "columns:\n  timestamp: [sold_at]\n  product_id: [sku_code, item]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	aliases, err := LoadColumnMapping(path)
	if err != nil {
		t.Fatalf("LoadColumnMapping: %v", err)
	}
	if got := aliases["product_id"]; len(got) != 2 || got[0] != "sku_code" {
		t.Errorf("product_id aliases = %v", got)
	}
	if got := aliases["timestamp"]; len(got) != 1 || got[0] != "sold_at" {
		t.Errorf("timestamp aliases = %v", got)
	}
}
