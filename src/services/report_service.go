package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/salesetl/src/database"
	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/model"
	"github.com/username/salesetl/src/models"
)

const (
	ckTotals               = "totals_%s_%s"
	ckDailySales           = "daily_%s_%s"
	ckTopProducts          = "top_%s_%d_%s_%s"
	ckRevenueBy            = "revenue_by_%s_%s_%s"
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
	moneyPlaces            = 2
	maxTopProducts         = 100
)

// rankingColumns and dimensionColumns whitelist what may be interpolated into SQL.
var (
	rankingColumns   = map[string]string{"quantity": "total_quantity", "revenue": "total_revenue"}
	dimensionColumns = map[string]string{"country": "country", "category": "category"}
)

type reportServiceImpl struct {
	wh          *database.Warehouse
	reportCache *cache.Cache
	ttl         time.Duration
}

// NewReportService builds the dashboard read side. Results are cached for ttl
// and dropped whenever Invalidate is called.
func NewReportService(wh *database.Warehouse, ttl time.Duration) ReportService {
	if ttl <= 0 {
		ttl = DefaultCacheExpiration
	}
	return &reportServiceImpl{
		wh:          wh,
		reportCache: cache.New(ttl, CacheCleanupInterval),
		ttl:         ttl,
	}
}

func (s *reportServiceImpl) Invalidate() {
	s.reportCache.Flush()
	logger.L.Debug("Report cache invalidated")
}

// where builds the sale_date filter for r.
func (r DateRange) where() (string, []any, error) {
	var conds []string
	var args []any
	for _, b := range []struct {
		value, op string
	}{{r.From, ">="}, {r.To, "<="}} {
		if b.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", b.value); err != nil {
			return "", nil, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDateRange, b.value)
		}
		conds = append(conds, "sale_date "+b.op+" ?")
		args = append(args, b.value)
	}
	if r.From != "" && r.To != "" && r.From > r.To {
		return "", nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidDateRange, r.From, r.To)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (s *reportServiceImpl) GetTotals(ctx context.Context, r DateRange) (*models.SalesTotals, error) {
	cacheKey := fmt.Sprintf(ckTotals, r.From, r.To)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.SalesTotals), nil
	}
	where, args, err := r.where()
	if err != nil {
		return nil, err
	}

	query := s.wh.Rebind(`
	SELECT COALESCE(SUM(revenue), 0), COALESCE(SUM(profit), 0), COUNT(*) - COUNT(profit),
	       COUNT(*), COUNT(DISTINCT transaction_key), AVG(margin)
	FROM sales_transactions` + where)

	var t models.SalesTotals
	var avgMargin sql.NullFloat64
	if err := s.wh.QueryRowContext(ctx, query, args...).Scan(
		&t.Revenue, &t.KnownProfit, &t.UnknownProfitCount, &t.Transactions, &t.Orders, &avgMargin,
	); err != nil {
		return nil, fmt.Errorf("querying sales totals: %w", err)
	}
	t.Revenue = t.Revenue.Round(moneyPlaces)
	t.KnownProfit = t.KnownProfit.Round(moneyPlaces)
	if avgMargin.Valid {
		m, _ := decimal.NewFromFloat(avgMargin.Float64).Round(4).Float64()
		t.AverageMargin = &m
	}

	s.reportCache.Set(cacheKey, &t, s.ttl)
	return &t, nil
}

func (s *reportServiceImpl) GetDailySales(ctx context.Context, r DateRange) ([]models.DailySales, error) {
	cacheKey := fmt.Sprintf(ckDailySales, r.From, r.To)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.DailySales), nil
	}
	where, args, err := r.where()
	if err != nil {
		return nil, err
	}

	query := s.wh.Rebind(`
	SELECT sale_date, COALESCE(SUM(revenue), 0), COALESCE(SUM(profit), 0), COUNT(*) - COUNT(profit)
	FROM sales_transactions` + where + `
	GROUP BY sale_date ORDER BY sale_date`)
	rows, err := s.wh.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying daily sales: %w", err)
	}
	defer rows.Close()

	days := []models.DailySales{}
	for rows.Next() {
		var d models.DailySales
		if err := rows.Scan(&d.Date, &d.Revenue, &d.KnownProfit, &d.UnknownProfitCount); err != nil {
			return nil, fmt.Errorf("scanning daily sales: %w", err)
		}
		d.Revenue = d.Revenue.Round(moneyPlaces)
		d.KnownProfit = d.KnownProfit.Round(moneyPlaces)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, days, s.ttl)
	return days, nil
}

func (s *reportServiceImpl) GetTopProducts(ctx context.Context, r DateRange, by string, limit int) ([]models.ProductRank, error) {
	orderCol, ok := rankingColumns[by]
	if !ok {
		return nil, ErrInvalidRanking
	}
	if limit <= 0 || limit > maxTopProducts {
		limit = 10
	}
	cacheKey := fmt.Sprintf(ckTopProducts, by, limit, r.From, r.To)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.ProductRank), nil
	}
	where, args, err := r.where()
	if err != nil {
		return nil, err
	}

	query := s.wh.Rebind(`
	SELECT product_id, MAX(description), SUM(quantity) AS total_quantity, SUM(revenue) AS total_revenue
	FROM sales_transactions` + where + `
	GROUP BY product_id
	ORDER BY ` + orderCol + ` DESC, product_id
	LIMIT ?`)
	rows, err := s.wh.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("querying top products: %w", err)
	}
	defer rows.Close()

	ranking := []models.ProductRank{}
	for rows.Next() {
		var p models.ProductRank
		if err := rows.Scan(&p.ProductID, &p.Description, &p.Quantity, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scanning top products: %w", err)
		}
		p.Revenue = p.Revenue.Round(moneyPlaces)
		ranking = append(ranking, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, ranking, s.ttl)
	return ranking, nil
}

func (s *reportServiceImpl) GetRevenueBy(ctx context.Context, r DateRange, dimension string) ([]models.GroupRevenue, error) {
	col, ok := dimensionColumns[dimension]
	if !ok {
		return nil, ErrInvalidDimension
	}
	cacheKey := fmt.Sprintf(ckRevenueBy, dimension, r.From, r.To)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.GroupRevenue), nil
	}
	where, args, err := r.where()
	if err != nil {
		return nil, err
	}

	query := s.wh.Rebind(`
	SELECT ` + col + `, COALESCE(SUM(revenue), 0) AS total_revenue
	FROM sales_transactions` + where + `
	GROUP BY ` + col + `
	ORDER BY total_revenue DESC, ` + col)
	rows, err := s.wh.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying revenue by %s: %w", dimension, err)
	}
	defer rows.Close()

	groups := []models.GroupRevenue{}
	for rows.Next() {
		var g models.GroupRevenue
		if err := rows.Scan(&g.Key, &g.Revenue); err != nil {
			return nil, fmt.Errorf("scanning revenue by %s: %w", dimension, err)
		}
		g.Revenue = g.Revenue.Round(moneyPlaces)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, groups, s.ttl)
	return groups, nil
}

type ledgerReaderImpl struct {
	ledger *model.Ledger
	repo   *model.SalesRepository
}

func NewLedgerReader(wh *database.Warehouse) LedgerReader {
	return &ledgerReaderImpl{ledger: model.NewLedger(wh), repo: model.NewSalesRepository(wh)}
}

func (l *ledgerReaderImpl) ListProcessedFiles(ctx context.Context) ([]model.ProcessedFileEntry, error) {
	entries, err := l.ledger.List(ctx)
	if entries == nil && err == nil {
		entries = []model.ProcessedFileEntry{}
	}
	return entries, err
}

func (l *ledgerReaderImpl) ListRuns(ctx context.Context, limit int) ([]models.IngestRun, error) {
	runs, err := l.repo.ListIngestRuns(ctx, limit)
	if runs == nil && err == nil {
		runs = []models.IngestRun{}
	}
	return runs, err
}
