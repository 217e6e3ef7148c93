package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/database"
	"github.com/username/salesetl/src/metrics"
	"github.com/username/salesetl/src/services"
)

var failOnError bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process all CSV files currently in the source directory once",
	Long: `run is the entry point for an external scheduler (cron, systemd timer,
Kubernetes CronJob). It processes every file present, prints the run summary as
JSON and exits. Files that fail are reported and retried on the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		wh, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer wh.Close()

		summary, err := newPipeline(wh, metrics.New(), nil).Run(ctx, config.Cfg.SourceDir)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
		if failOnError && summary.Err() != nil {
			return fmt.Errorf("%d file(s) failed: %w", summary.FilesFailed, summary.Err())
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero when any file failed")
	rootCmd.AddCommand(runCmd)
}

func newPipeline(wh *database.Warehouse, m *metrics.Metrics, cache services.CacheInvalidator) *services.Pipeline {
	cfg := config.Cfg
	return services.NewPipeline(wh, services.PipelineConfig{
		BatchSize:   cfg.BatchSize,
		FileTimeout: cfg.FileTimeout,
		Location:    cfg.DefaultTimezone,
		Aliases:     cfg.ColumnAliases,
	}, m, cache)
}
