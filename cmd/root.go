package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/database"
	"github.com/username/salesetl/src/logger"
)

var (
	sourceDirFlag string
	logLevelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "salesetl",
	Short: "Incremental, idempotent ETL of point-of-sale CSV exports into a sales warehouse",
	Long: `salesetl loads every CSV file in a source directory into the sales warehouse.

Runs are idempotent: unchanged files are skipped through the processed-file
ledger and every transaction is inserted at most once, so the command can be
invoked on a fixed interval, and overlapping runs are safe.

Configuration comes from the environment or a .env file (see SOURCE_DIR,
DATABASE_DRIVER, DATABASE_PATH, DATABASE_URL, BATCH_SIZE, RUN_INTERVAL).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfig()
		if sourceDirFlag != "" {
			config.Cfg.SourceDir = sourceDirFlag
		}
		if logLevelFlag != "" {
			config.Cfg.LogLevel = logLevelFlag
		}
		logger.InitLogger(config.Cfg.LogLevel)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourceDirFlag, "source-dir", "", "directory of CSV files (overrides SOURCE_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}

// warehouseDSN picks the connection string for the configured driver.
func warehouseDSN(cfg *config.AppConfig) string {
	if cfg.DatabaseDriver == config.DriverPostgres {
		return cfg.DatabaseURL
	}
	return cfg.DatabasePath
}

// openWarehouse applies pending migrations and opens the warehouse pool.
func openWarehouse(ctx context.Context) (*database.Warehouse, error) {
	cfg := config.Cfg
	dsn := warehouseDSN(cfg)
	logger.L.Info("Initializing warehouse...", "driver", cfg.DatabaseDriver)
	if err := database.RunMigrations(cfg.DatabaseDriver, dsn); err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg.DatabaseDriver, dsn)
}
