// Package metrics exposes the ETL run counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/username/salesetl/src/models"
)

const namespace = "salesetl"

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	FilesTotal    *prometheus.CounterVec
	RowsScanned   prometheus.Counter
	RowsRejected  prometheus.Counter
	Inserted      prometheus.Counter
	Deduplicated  prometheus.Counter
	RunDuration   prometheus.Histogram
	LastRunFinish prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors on their own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline invocations by outcome",
		}, []string{"outcome"}),
		FilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Source files seen by status (loaded, skipped, failed)",
		}, []string{"status"}),
		RowsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_scanned_total",
			Help:      "CSV rows read",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "CSV rows rejected as malformed",
		}),
		Inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_inserted_total",
			Help:      "Transactions newly stored in the warehouse",
		}),
		Deduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_deduplicated_total",
			Help:      "Candidates discarded because their transaction_id was already stored",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one pipeline invocation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		LastRunFinish: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time the last invocation finished",
		}),
	}

	m.registry.MustRegister(
		m.RunsTotal, m.FilesTotal, m.RowsScanned, m.RowsRejected,
		m.Inserted, m.Deduplicated, m.RunDuration, m.LastRunFinish,
		prometheus.NewGoCollector(),
	)
	return m
}

// ObserveRun folds a finished run into the collectors.
func (m *Metrics) ObserveRun(s *models.RunSummary) {
	if m == nil || s == nil {
		return
	}
	outcome := "ok"
	switch {
	case s.Cancelled:
		outcome = "cancelled"
	case s.FilesFailed > 0:
		outcome = "partial"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.FilesTotal.WithLabelValues(string(models.FileStatusLoaded)).Add(float64(s.FilesProcessed))
	m.FilesTotal.WithLabelValues(string(models.FileStatusSkipped)).Add(float64(s.FilesSkipped))
	m.FilesTotal.WithLabelValues(string(models.FileStatusFailed)).Add(float64(s.FilesFailed))
	m.RowsScanned.Add(float64(s.RowsScanned))
	m.RowsRejected.Add(float64(s.RowsRejected))
	m.Inserted.Add(float64(s.Inserted))
	m.Deduplicated.Add(float64(s.Deduplicated))
	m.RunDuration.Observe(s.Duration.Seconds())
	m.LastRunFinish.Set(float64(s.FinishedAt.Unix()))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
