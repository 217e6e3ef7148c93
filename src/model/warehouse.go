package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/salesetl/src/database"
	"github.com/username/salesetl/src/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// SalesRepository reads and writes the sales_transactions and ingest_runs tables.
type SalesRepository struct {
	wh *database.Warehouse
}

func NewSalesRepository(wh *database.Warehouse) *SalesRepository {
	return &SalesRepository{wh: wh}
}

const transactionColumns = `transaction_id, transaction_key, sold_at, sale_date, product_id, description, category, country, customer_id,
	quantity, unit_price, unit_cost, revenue, profit, unit_margin, margin, source_file, run_id, loaded_at`

// InsertIfAbsent inserts tx unless its transaction_id is already stored. The
// existence check and the insert are one statement, so two overlapping runs
// can never both insert the same id. inserted is false for a duplicate.
func (r *SalesRepository) InsertIfAbsent(ctx context.Context, q Querier, tx *models.Transaction) (inserted bool, err error) {
	query := r.wh.Rebind(`
	INSERT INTO sales_transactions (` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (transaction_id) DO NOTHING`)

	key := sql.NullString{String: tx.TransactionKey, Valid: tx.TransactionKey != ""}
	res, err := q.ExecContext(ctx, query,
		tx.TransactionID,
		key,
		tx.Timestamp.UTC(),
		tx.SaleDate(),
		tx.ProductID,
		tx.Description,
		tx.Category,
		tx.Country,
		tx.CustomerID,
		tx.Quantity,
		tx.UnitPrice,
		tx.UnitCost,
		tx.Revenue,
		tx.Profit,
		tx.UnitMargin,
		tx.Margin,
		tx.SourceFile,
		tx.RunID,
		tx.LoadedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("inserting transaction %s: %w", tx.TransactionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected for %s: %w", tx.TransactionID, err)
	}
	return n == 1, nil
}

// Get loads one stored transaction by id.
func (r *SalesRepository) Get(ctx context.Context, id string) (*models.Transaction, error) {
	query := r.wh.Rebind(`SELECT ` + transactionColumns + ` FROM sales_transactions WHERE transaction_id = ?`)
	tx, err := scanTransaction(r.wh.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading transaction %s: %w", id, err)
	}
	return tx, nil
}

// ListBySourceFile returns the transactions first loaded from file, in timestamp order.
func (r *SalesRepository) ListBySourceFile(ctx context.Context, file string) ([]models.Transaction, error) {
	query := r.wh.Rebind(`SELECT ` + transactionColumns + ` FROM sales_transactions WHERE source_file = ? ORDER BY sold_at, transaction_id`)
	rows, err := r.wh.QueryContext(ctx, query, file)
	if err != nil {
		return nil, fmt.Errorf("listing transactions of %s: %w", file, err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// Count returns the number of stored transactions.
func (r *SalesRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.wh.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var key sql.NullString
	var saleDate string
	err := s.Scan(
		&tx.TransactionID,
		&key,
		&tx.Timestamp,
		&saleDate,
		&tx.ProductID,
		&tx.Description,
		&tx.Category,
		&tx.Country,
		&tx.CustomerID,
		&tx.Quantity,
		&tx.UnitPrice,
		&tx.UnitCost,
		&tx.Revenue,
		&tx.Profit,
		&tx.UnitMargin,
		&tx.Margin,
		&tx.SourceFile,
		&tx.RunID,
		&tx.LoadedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.TransactionKey = key.String
	tx.Timestamp = tx.Timestamp.UTC()
	tx.LoadedAt = tx.LoadedAt.UTC()
	return &tx, nil
}

// InsertIngestRun stores the summary of one pipeline invocation.
func (r *SalesRepository) InsertIngestRun(ctx context.Context, run models.IngestRun) error {
	query := r.wh.Rebind(`
	INSERT INTO ingest_runs (run_id, source_dir, started_at, finished_at, files_processed, files_skipped, files_failed,
		rows_rejected, inserted, deduplicated, error_text)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.wh.ExecContext(ctx, query,
		run.RunID, run.SourceDir, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.FilesProcessed, run.FilesSkipped, run.FilesFailed,
		run.RowsRejected, run.Inserted, run.Deduplicated, run.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("recording ingest run %s: %w", run.RunID, err)
	}
	return nil
}

// ListIngestRuns returns the most recent runs first.
func (r *SalesRepository) ListIngestRuns(ctx context.Context, limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.wh.Rebind(`
	SELECT run_id, source_dir, started_at, finished_at, files_processed, files_skipped, files_failed,
		rows_rejected, inserted, deduplicated, error_text
	FROM ingest_runs ORDER BY started_at DESC LIMIT ?`)
	rows, err := r.wh.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var run models.IngestRun
		if err := rows.Scan(&run.RunID, &run.SourceDir, &run.StartedAt, &run.FinishedAt,
			&run.FilesProcessed, &run.FilesSkipped, &run.FilesFailed,
			&run.RowsRejected, &run.Inserted, &run.Deduplicated, &run.ErrorText); err != nil {
			return nil, fmt.Errorf("scanning ingest run: %w", err)
		}
		run.StartedAt = run.StartedAt.UTC()
		run.FinishedAt = run.FinishedAt.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

