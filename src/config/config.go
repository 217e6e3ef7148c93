package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	SourceDir string
	LogLevel  string
	Port      string

	// Warehouse settings
	DatabaseDriver string
	DatabasePath   string // sqlite only
	DatabaseURL    string // postgres only

	// Run settings
	RunInterval     time.Duration
	FileTimeout     time.Duration
	BatchSize       int
	DefaultTimezone *time.Location

	// Optional YAML file with extra CSV header aliases
	ColumnMappingPath string
	ColumnAliases     map[string][]string

	// Reporting
	ReportCacheTTL time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file
// and stores it in Cfg. Invalid configuration terminates the process.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}
	Cfg = cfg

	log.Printf("Configuration loaded: SourceDir=%s, Driver=%s, LogLevel=%s, Interval=%s, BatchSize=%d",
		Cfg.SourceDir, Cfg.DatabaseDriver, Cfg.LogLevel, Cfg.RunInterval, Cfg.BatchSize)
}

// Load builds an AppConfig from the current environment without touching the global.
func Load() (*AppConfig, error) {
	driver := strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
	}

	tzName := getEnv("DEFAULT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", tzName, err)
	}

	batchSize := getEnvAsInt("BATCH_SIZE", 500)
	if batchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive, got %d", batchSize)
	}

	cfg := &AppConfig{
		SourceDir: getEnv("SOURCE_DIR", "./data"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Port:      getEnv("PORT", "8080"),

		DatabaseDriver: driver,
		DatabasePath:   getEnv("DATABASE_PATH", "./sales_warehouse.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		RunInterval:     getEnvAsDuration("RUN_INTERVAL", 5*time.Minute),
		FileTimeout:     getEnvAsDuration("FILE_TIMEOUT", 2*time.Minute),
		BatchSize:       batchSize,
		DefaultTimezone: loc,

		ColumnMappingPath: getEnv("COLUMN_MAPPING_PATH", ""),

		ReportCacheTTL: getEnvAsDuration("REPORT_CACHE_TTL", 5*time.Minute),
	}

	if cfg.DatabaseDriver == DriverPostgres && cfg.DatabaseURL == "" {
		dsn, err := postgresURLFromParts()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}

	if cfg.ColumnMappingPath != "" {
		aliases, err := LoadColumnMapping(cfg.ColumnMappingPath)
		if err != nil {
			return nil, err
		}
		cfg.ColumnAliases = aliases
	}

	return cfg, nil
}

// postgresURLFromParts assembles a DSN from the POSTGRES_* variables used by the
// container setup. All of user, password, host, port and db must be set.
func postgresURLFromParts() (string, error) {
	parts := map[string]string{}
	var missing []string
	for _, key := range []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB"} {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
			continue
		}
		parts[key] = v
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("DATABASE_URL not set and postgres variables missing: %s", strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(parts["POSTGRES_USER"], parts["POSTGRES_PASSWORD"]),
		Host:     parts["POSTGRES_HOST"] + ":" + parts["POSTGRES_PORT"],
		Path:     "/" + parts["POSTGRES_DB"],
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String(), nil
}

// columnMappingFile is the YAML layout of COLUMN_MAPPING_PATH:
//
//	columns:
//	  timestamp: [invoicedate, sold_at]
//	  product_id: [stockcode]
type columnMappingFile struct {
	Columns map[string][]string `yaml:"columns"`
}

// LoadColumnMapping reads extra header aliases per canonical field.
func LoadColumnMapping(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading column mapping %s: %w", path, err)
	}
	var f columnMappingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing column mapping %s: %w", path, err)
	}
	return f.Columns, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
