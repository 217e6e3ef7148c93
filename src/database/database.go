// src/database/database.go
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/utils"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Warehouse is the connection pool to the sales warehouse together with the
// driver name, which decides the placeholder style and migration set.
type Warehouse struct {
	*sql.DB
	Driver string
}

// Open connects to the warehouse and pings it, retrying while the database comes up.
func Open(ctx context.Context, driver, dsn string) (*Warehouse, error) {
	sqlDriver, connStr, err := driverDSN(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(sqlDriver, connStr)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == config.DriverSQLite {
		// One connection per handle. Overlapping runs in other processes wait on
		// the busy timeout instead of failing.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	err = utils.Retry(ctx, 5, 500*time.Millisecond, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			logger.L.Warn("Warehouse ping failed, retrying", "driver", driver, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &Warehouse{DB: db, Driver: driver}, nil
}

// driverDSN returns the database/sql driver name and connection string.
func driverDSN(driver, dsn string) (string, string, error) {
	switch driver {
	case config.DriverSQLite:
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		// _txlock=immediate takes the write lock at BEGIN so the busy timeout
		// applies to overlapping writers.
		return "sqlite", dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=foreign_keys(on)&_txlock=immediate", nil
	case config.DriverPostgres:
		return "postgres", dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// RunMigrations applies the embedded schema for the driver. It uses its own
// connection, which golang-migrate closes when done.
func RunMigrations(driver, dsn string) error {
	sqlDriver, connStr, err := driverDSN(driver, dsn)
	if err != nil {
		return err
	}
	db, err := sql.Open(sqlDriver, connStr)
	if err != nil {
		return fmt.Errorf("open %s for migrations: %w", driver, err)
	}
	defer db.Close()

	var instance migratedb.Driver
	switch driver {
	case config.DriverSQLite:
		db.SetMaxOpenConns(1)
		instance, err = sqlite.WithInstance(db, &sqlite.Config{})
	case config.DriverPostgres:
		instance, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		logger.L.Error("Could not create migration driver", "driver", driver, "error", err)
		return fmt.Errorf("could not create %s migration driver: %w", driver, err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, instance)
	if err != nil {
		logger.L.Error("Migration instance creation failed", "driver", driver, "error", err)
		return fmt.Errorf("migration instance creation failed: %w", err)
	}
	defer m.Close()

	logger.L.Info("Applying database migrations...", "driver", driver)
	err = m.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.L.Info("No new database migrations to apply.")
			return nil
		}
		logger.L.Error("Failed to apply migrations", "error", err)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.L.Info("Database migrations applied successfully.")
	return nil
}

// Rebind rewrites '?' placeholders into the driver's style.
func (w *Warehouse) Rebind(query string) string {
	return Rebind(w.Driver, query)
}

// Rebind rewrites '?' placeholders into $1, $2, ... for postgres. Quoted
// literals are left alone.
func Rebind(driver, query string) string {
	if driver != config.DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
