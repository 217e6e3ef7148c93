package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/username/salesetl/src/models"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(&models.RunSummary{
		FilesProcessed: 2,
		FilesSkipped:   1,
		FilesFailed:    1,
		RowsScanned:    20,
		RowsRejected:   1,
		Inserted:       15,
		Deduplicated:   4,
		Duration:       time.Second,
		FinishedAt:     time.Unix(1700000000, 0),
	})

	if got := testutil.ToFloat64(m.Inserted); got != 15 {
		t.Errorf("inserted = %v, want 15", got)
	}
	if got := testutil.ToFloat64(m.FilesTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed files = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("partial")); got != 1 {
		t.Errorf("partial runs = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "salesetl_transactions_deduplicated_total 4") {
		t.Errorf("exposition missing dedup counter:\n%s", rec.Body.String())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun(&models.RunSummary{Inserted: 1})
}
