package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/services"
	"github.com/username/salesetl/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: service}
}

func dateRangeFromRequest(r *http.Request) services.DateRange {
	q := r.URL.Query()
	return services.DateRange{From: q.Get("from"), To: q.Get("to")}
}

// sendServiceError maps validation errors to 400 and everything else to 500.
func sendServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, services.ErrInvalidDateRange) || errors.Is(err, services.ErrInvalidRanking) || errors.Is(err, services.ErrInvalidDimension) {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.FromContext(r.Context()).Error(msg, "error", err)
	utils.SendJSONError(w, msg, http.StatusInternalServerError)
}

func (h *ReportHandler) HandleGetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.reportService.GetTotals(r.Context(), dateRangeFromRequest(r))
	if err != nil {
		sendServiceError(w, r, "Error retrieving sales totals", err)
		return
	}
	writeJSONWithETag(w, r, totals)
}

func (h *ReportHandler) HandleGetDailySales(w http.ResponseWriter, r *http.Request) {
	days, err := h.reportService.GetDailySales(r.Context(), dateRangeFromRequest(r))
	if err != nil {
		sendServiceError(w, r, "Error retrieving daily sales", err)
		return
	}
	writeJSONWithETag(w, r, days)
}

func (h *ReportHandler) HandleGetTopProducts(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = "revenue"
	}
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			utils.SendJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ranking, err := h.reportService.GetTopProducts(r.Context(), dateRangeFromRequest(r), by, limit)
	if err != nil {
		sendServiceError(w, r, "Error retrieving top products", err)
		return
	}
	writeJSONWithETag(w, r, ranking)
}

func (h *ReportHandler) HandleGetRevenueBy(w http.ResponseWriter, r *http.Request) {
	dimension := chi.URLParam(r, "dimension")
	groups, err := h.reportService.GetRevenueBy(r.Context(), dateRangeFromRequest(r), dimension)
	if err != nil {
		sendServiceError(w, r, "Error retrieving revenue breakdown", err)
		return
	}
	writeJSONWithETag(w, r, groups)
}
