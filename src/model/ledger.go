package model

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"time"

	"github.com/username/salesetl/src/database"
	"github.com/username/salesetl/src/models"
	"github.com/username/salesetl/src/security/validation"
	"golang.org/x/crypto/blake2b"
)

var ErrLedgerEntryNotFound = errors.New("ledger entry not found")

// ProcessedFileEntry records that a file version was fully ingested.
type ProcessedFileEntry struct {
	FileName           string    `json:"file_name"`
	ContentFingerprint string    `json:"content_fingerprint"`
	RowCountIngested   int       `json:"row_count_ingested"`
	FirstProcessedAt   time.Time `json:"first_processed_at"`
	LastProcessedAt    time.Time `json:"last_processed_at"`
}

// Ledger is the persisted processed-file ledger. It holds one entry per file
// name; a new fingerprint under the same name replaces the entry.
type Ledger struct {
	wh *database.Warehouse
}

func NewLedger(wh *database.Warehouse) *Ledger {
	return &Ledger{wh: wh}
}

// IsFileProcessed reports whether name was already ingested with exactly this content.
func (l *Ledger) IsFileProcessed(ctx context.Context, name, fingerprint string) (bool, error) {
	query := l.wh.Rebind(`SELECT content_fingerprint FROM processed_files WHERE file_name = ?`)
	var stored string
	err := l.wh.QueryRowContext(ctx, query, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up ledger entry for %s: %w", name, err)
	}
	return stored == fingerprint, nil
}

// RecordFileProcessed upserts the entry for name. It runs on q so the loader can
// commit it together with the file's last batch of inserts.
func (l *Ledger) RecordFileProcessed(ctx context.Context, q Querier, name, fingerprint string, rowCount int, at time.Time) error {
	query := l.wh.Rebind(`
	INSERT INTO processed_files (file_name, content_fingerprint, row_count_ingested, first_processed_at, last_processed_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (file_name) DO UPDATE SET
		content_fingerprint = excluded.content_fingerprint,
		row_count_ingested  = excluded.row_count_ingested,
		last_processed_at   = excluded.last_processed_at`)
	at = at.UTC()
	if _, err := q.ExecContext(ctx, query, name, fingerprint, rowCount, at, at); err != nil {
		return fmt.Errorf("recording ledger entry for %s: %w", name, err)
	}
	return nil
}

// Get returns the entry for name or ErrLedgerEntryNotFound.
func (l *Ledger) Get(ctx context.Context, name string) (*ProcessedFileEntry, error) {
	query := l.wh.Rebind(`
	SELECT file_name, content_fingerprint, row_count_ingested, first_processed_at, last_processed_at
	FROM processed_files WHERE file_name = ?`)
	var e ProcessedFileEntry
	err := l.wh.QueryRowContext(ctx, query, name).Scan(&e.FileName, &e.ContentFingerprint, &e.RowCountIngested, &e.FirstProcessedAt, &e.LastProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLedgerEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger entry for %s: %w", name, err)
	}
	return &e, nil
}

// List returns every entry, most recently processed first.
func (l *Ledger) List(ctx context.Context) ([]ProcessedFileEntry, error) {
	rows, err := l.wh.QueryContext(ctx, `
	SELECT file_name, content_fingerprint, row_count_ingested, first_processed_at, last_processed_at
	FROM processed_files ORDER BY last_processed_at DESC, file_name`)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	defer rows.Close()

	var entries []ProcessedFileEntry
	for rows.Next() {
		var e ProcessedFileEntry
		if err := rows.Scan(&e.FileName, &e.ContentFingerprint, &e.RowCountIngested, &e.FirstProcessedAt, &e.LastProcessedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func newFingerprintHash() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only a key longer than 64 bytes makes New256 fail.
		panic(err)
	}
	return h
}

// FingerprintFile hashes the file content with BLAKE2b-256 and checks in the
// same pass that it is readable text. Modification times are never consulted.
// The read stops with ctx's error once ctx is done.
func FingerprintFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := newFingerprintHash()
	checker := validation.NewTextChecker(f.Name())
	if _, err := io.Copy(io.MultiWriter(h, checker), &contextReader{ctx: ctx, r: f}); err != nil {
		return "", err
	}
	if err := checker.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidEncoding, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// contextReader fails the next Read once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// HashingReader fingerprints exactly the bytes read through it, so the entry
// recorded after parsing matches what was parsed even if the file grew meanwhile.
type HashingReader struct {
	r io.Reader
	h hash.Hash
}

func NewHashingReader(r io.Reader) *HashingReader {
	h := newFingerprintHash()
	return &HashingReader{r: io.TeeReader(r, h), h: h}
}

func (hr *HashingReader) Read(p []byte) (int, error) { return hr.r.Read(p) }

// Fingerprint is the hex digest of everything read so far.
func (hr *HashingReader) Fingerprint() string { return hex.EncodeToString(hr.h.Sum(nil)) }
