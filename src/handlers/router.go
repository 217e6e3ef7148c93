package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// RouterDeps are the collaborators the read-only API needs.
type RouterDeps struct {
	Reports *ReportHandler
	Ledger  *LedgerHandler
	DB      Pinger
	Metrics http.Handler // optional
	Limiter *rate.Limiter
}

// NewRouter wires the dashboard API, health check and metrics endpoint.
func NewRouter(deps RouterDeps) *chi.Mux {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	r.Use(EnableCORS)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "sales ETL is running"})
	})
	r.Get("/health", HealthHandler(deps.DB))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(limiter))

		r.Get("/reports/totals", deps.Reports.HandleGetTotals)
		r.Get("/reports/daily", deps.Reports.HandleGetDailySales)
		r.Get("/reports/top-products", deps.Reports.HandleGetTopProducts)
		r.Get("/reports/revenue-by/{dimension}", deps.Reports.HandleGetRevenueBy)

		r.Get("/ledger", deps.Ledger.HandleListProcessedFiles)
		r.Get("/runs", deps.Ledger.HandleListRuns)
	})

	return r
}
