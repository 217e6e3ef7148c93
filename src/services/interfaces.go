package services

import (
	"context"
	"errors"

	"github.com/username/salesetl/src/model"
	"github.com/username/salesetl/src/models"
)

// Define common service errors
var (
	ErrInvalidRanking   = errors.New("unknown ranking, want quantity or revenue")
	ErrInvalidDimension = errors.New("unknown dimension, want country or category")
	ErrInvalidDateRange = errors.New("invalid date range")
)

// IngestService is the single entry point of the ETL core.
type IngestService interface {
	Run(ctx context.Context, sourceDir string) (*models.RunSummary, error)
}

// CacheInvalidator is notified after a run stored new transactions.
type CacheInvalidator interface {
	Invalidate()
}

// DateRange filters reports on the UTC sale date, inclusive. Empty bounds are open.
type DateRange struct {
	From string // YYYY-MM-DD
	To   string // YYYY-MM-DD
}

// ReportService serves the read-only aggregates the dashboard queries.
type ReportService interface {
	CacheInvalidator
	GetTotals(ctx context.Context, r DateRange) (*models.SalesTotals, error)
	GetDailySales(ctx context.Context, r DateRange) ([]models.DailySales, error)
	GetTopProducts(ctx context.Context, r DateRange, by string, limit int) ([]models.ProductRank, error)
	GetRevenueBy(ctx context.Context, r DateRange, dimension string) ([]models.GroupRevenue, error)
}

// LedgerReader is the read side of the processed-file ledger and run history.
type LedgerReader interface {
	ListProcessedFiles(ctx context.Context) ([]model.ProcessedFileEntry, error)
	ListRuns(ctx context.Context, limit int) ([]models.IngestRun, error)
}
