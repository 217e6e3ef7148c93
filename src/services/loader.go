package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/username/salesetl/src/database"
	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/model"
	"github.com/username/salesetl/src/models"
)

// RowSource yields enriched candidates for one file. Next returns io.EOF at the
// end; any other error abandons the file. Fingerprint is only meaningful after
// io.EOF and identifies the bytes that produced the candidates.
type RowSource interface {
	Next() (*models.Transaction, error)
	Fingerprint() string
}

// LoadResult holds the committed counters of one file.
type LoadResult struct {
	Accepted     int // candidates offered to the warehouse
	Inserted     int
	Deduplicated int
	Fingerprint  string
}

// Loader writes candidates with insert-if-absent semantics and records the file
// in the ledger in the same transaction as its last batch.
type Loader struct {
	wh        *database.Warehouse
	repo      *model.SalesRepository
	ledger    *model.Ledger
	batchSize int
	now       func() time.Time

	// beforeCommit runs before every commit; tests use it to simulate a crash.
	beforeCommit func(batch int, final bool) error
}

func NewLoader(wh *database.Warehouse, repo *model.SalesRepository, ledger *model.Ledger, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Loader{wh: wh, repo: repo, ledger: ledger, batchSize: batchSize, now: time.Now}
}

// LoadFile drains rows into the warehouse. Full batches commit as they fill, so
// a failure keeps earlier batches; the ledger entry is only written with the
// final batch, so a failed file is re-read on the next run and its committed
// rows come back as duplicates.
func (l *Loader) LoadFile(ctx context.Context, fileName, runID string, rows RowSource) (LoadResult, error) {
	var res LoadResult
	var pending LoadResult
	batch := 0
	loadedAt := l.now().UTC()

	storageErr := func(op string, err error) error {
		return &models.StorageError{File: fileName, Op: op, Err: err}
	}

	tx, err := l.wh.BeginTx(ctx, nil)
	if err != nil {
		return res, storageErr("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	commit := func(final bool) error {
		if l.beforeCommit != nil {
			if err := l.beforeCommit(batch, final); err != nil {
				return storageErr("commit", err)
			}
		}
		if err := tx.Commit(); err != nil {
			tx = nil
			return storageErr("commit", err)
		}
		tx = nil
		res.Accepted += pending.Accepted
		res.Inserted += pending.Inserted
		res.Deduplicated += pending.Deduplicated
		pending = LoadResult{}
		batch++
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, storageErr("load", err)
		}

		cand, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}

		cand.RunID = runID
		cand.LoadedAt = loadedAt
		inserted, err := l.repo.InsertIfAbsent(ctx, tx, cand)
		if err != nil {
			return res, storageErr("insert", err)
		}
		pending.Accepted++
		if inserted {
			pending.Inserted++
		} else {
			pending.Deduplicated++
			logger.FromContext(ctx).Debug("Duplicate transaction discarded",
				"transactionID", cand.TransactionID, "line", cand.SourceLine)
		}

		if pending.Accepted == l.batchSize {
			if err := commit(false); err != nil {
				return res, err
			}
			if tx, err = l.wh.BeginTx(ctx, nil); err != nil {
				return res, storageErr("begin", err)
			}
		}
	}

	res.Fingerprint = rows.Fingerprint()
	rowCount := res.Accepted + pending.Accepted
	if err := l.ledger.RecordFileProcessed(ctx, tx, fileName, res.Fingerprint, rowCount, loadedAt); err != nil {
		return res, storageErr("ledger", err)
	}
	if err := commit(true); err != nil {
		return res, err
	}
	return res, nil
}

var _ model.Querier = (*sql.Tx)(nil)
