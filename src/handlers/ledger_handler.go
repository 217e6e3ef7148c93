package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/services"
	"github.com/username/salesetl/src/utils"
)

type LedgerHandler struct {
	ledgerReader services.LedgerReader
}

func NewLedgerHandler(reader services.LedgerReader) *LedgerHandler {
	return &LedgerHandler{ledgerReader: reader}
}

func (h *LedgerHandler) HandleListProcessedFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledgerReader.ListProcessedFiles(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Error listing processed files", "error", err)
		utils.SendJSONError(w, "Error listing processed files", http.StatusInternalServerError)
		return
	}
	writeJSONWithETag(w, r, entries)
}

func (h *LedgerHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			utils.SendJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := h.ledgerReader.ListRuns(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error listing ingest runs", "error", err)
		utils.SendJSONError(w, "Error listing ingest runs", http.StatusInternalServerError)
		return
	}
	writeJSONWithETag(w, r, runs)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the warehouse answers.
func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.FromContext(r.Context()).Warn("Health check failed", "error", err)
			utils.SendJSONError(w, "warehouse unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
