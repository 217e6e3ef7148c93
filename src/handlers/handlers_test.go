package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/username/salesetl/src/database/dbtest"
	"github.com/username/salesetl/src/services"
	"golang.org/x/time/rate"
)

func newTestRouter(t *testing.T, limiter *rate.Limiter) http.Handler {
	t.Helper()
	wh := dbtest.New(t)
	dir := t.TempDir()
	csv := "timestamp,product_id,quantity,unit_price,unit_cost,country\n" +
		"2024-03-01 09:00:00,A,2,5.00,3.00,Portugal\n" +
		"2024-03-02 09:00:00,B,1,8.00,,Spain\n"
	if err := os.WriteFile(filepath.Join(dir, "day.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	reports := services.NewReportService(wh, time.Minute)
	p := services.NewPipeline(wh, services.PipelineConfig{BatchSize: 100}, nil, reports)
	if _, err := p.Run(context.Background(), dir); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	return NewRouter(RouterDeps{
		Reports: NewReportHandler(reports),
		Ledger:  NewLedgerHandler(services.NewLedgerReader(wh)),
		DB:      wh,
		Limiter: limiter,
	})
}

func get(h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTotalsEndpointWithETag(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := get(h, "/api/reports/totals", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["revenue"] != "18" || body["unknown_profit_count"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	again := get(h, "/api/reports/totals", map[string]string{"If-None-Match": etag})
	if again.Code != http.StatusNotModified {
		t.Errorf("conditional request status = %d, want 304", again.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/api/reports/daily", http.StatusOK},
		{"/api/reports/daily?from=2024-03-02&to=2024-03-01", http.StatusBadRequest},
		{"/api/reports/top-products?by=quantity&limit=5", http.StatusOK},
		{"/api/reports/top-products?by=margin", http.StatusBadRequest},
		{"/api/reports/top-products?limit=-1", http.StatusBadRequest},
		{"/api/reports/revenue-by/country", http.StatusOK},
		{"/api/reports/revenue-by/customer_id", http.StatusBadRequest},
		{"/api/ledger", http.StatusOK},
		{"/api/runs", http.StatusOK},
		{"/api/runs?limit=abc", http.StatusBadRequest},
		{"/health", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(h, tt.target, nil)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestLedgerEndpointListsFiles(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := get(h, "/api/ledger", nil)

	var entries []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decoding %s: %v", rec.Body.String(), err)
	}
	if len(entries) != 1 || entries[0]["file_name"] != "day.csv" || entries[0]["row_count_ingested"] != float64(2) {
		t.Errorf("entries = %v", entries)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, rate.NewLimiter(0, 1))
	if rec := get(h, "/api/runs", nil); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec := get(h, "/api/runs", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec := get(h, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health must not be rate limited, got %d", rec.Code)
	}
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealthReportsWarehouseDown(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(downDB{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
