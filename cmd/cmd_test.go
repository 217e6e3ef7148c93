package cmd

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/models"
)

func TestWarehouseDSN(t *testing.T) {
	sqlite := &config.AppConfig{DatabaseDriver: config.DriverSQLite, DatabasePath: "w.db", DatabaseURL: "postgres://x"}
	if got := warehouseDSN(sqlite); got != "w.db" {
		t.Errorf("sqlite dsn = %q", got)
	}
	pg := &config.AppConfig{DatabaseDriver: config.DriverPostgres, DatabasePath: "w.db", DatabaseURL: "postgres://x"}
	if got := warehouseDSN(pg); got != "postgres://x" {
		t.Errorf("postgres dsn = %q", got)
	}
}

type countingRuns struct {
	calls atomic.Int32
}

func (c *countingRuns) Run(ctx context.Context, dir string) (*models.RunSummary, error) {
	c.calls.Add(1)
	return &models.RunSummary{SourceDir: dir}, nil
}

func TestScheduleRunsImmediatelyAndOnTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := &countingRuns{}
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		schedule(ctx, 10*time.Millisecond, runs, "data", &wg)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for runs.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	if n := runs.calls.Load(); n < 3 {
		t.Errorf("runs = %d, want at least 3", n)
	}
}
