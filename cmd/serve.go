package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/handlers"
	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/metrics"
	"github.com/username/salesetl/src/services"
)

var (
	intervalFlag time.Duration
	noSchedule   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ETL on a fixed interval and serve the report API",
	Long: `serve triggers a run immediately and then every RUN_INTERVAL. Each tick
starts an independent run, so a slow run may overlap the next one; the
warehouse's unique transaction_id keeps that safe. The read-only report API,
/health and /metrics are served on PORT.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.Cfg
		interval := cfg.RunInterval
		if intervalFlag > 0 {
			interval = intervalFlag
		}

		wh, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer wh.Close()

		m := metrics.New()
		reports := services.NewReportService(wh, cfg.ReportCacheTTL)
		pipeline := newPipeline(wh, m, reports)

		router := handlers.NewRouter(handlers.RouterDeps{
			Reports: handlers.NewReportHandler(reports),
			Ledger:  handlers.NewLedgerHandler(services.NewLedgerReader(wh)),
			DB:      wh,
			Metrics: m.Handler(),
		})
		server := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		var runs sync.WaitGroup
		if !noSchedule {
			runs.Add(1)
			go func() {
				defer runs.Done()
				schedule(ctx, interval, pipeline, cfg.SourceDir, &runs)
			}()
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.L.Info("Server starting", "address", server.Addr, "interval", interval.String())
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				stop()
				runs.Wait()
				return err
			}
		}

		logger.L.Info("Shutting down, waiting for in-flight runs")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Warn("HTTP shutdown did not complete", "error", err)
		}
		runs.Wait()
		return nil
	},
}

// schedule starts a run now and on every tick until ctx is done. Runs are not
// serialized: each tick gets its own goroutine.
func schedule(ctx context.Context, interval time.Duration, p services.IngestService, dir string, runs *sync.WaitGroup) {
	start := func() {
		runs.Add(1)
		go func() {
			defer runs.Done()
			if _, err := p.Run(ctx, dir); err != nil {
				logger.L.Error("Scheduled run failed", "sourceDir", dir, "error", err)
			}
		}()
	}

	start()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start()
		}
	}
}

func init() {
	serveCmd.Flags().DurationVar(&intervalFlag, "interval", 0, "run interval (overrides RUN_INTERVAL)")
	serveCmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve the API without triggering runs")
	rootCmd.AddCommand(serveCmd)
}
