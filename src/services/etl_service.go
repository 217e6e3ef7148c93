package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/username/salesetl/src/database"
	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/metrics"
	"github.com/username/salesetl/src/model"
	"github.com/username/salesetl/src/models"
	"github.com/username/salesetl/src/parsers/possales"
	"github.com/username/salesetl/src/processors"
)

// PipelineConfig carries the run settings taken from config.AppConfig.
type PipelineConfig struct {
	BatchSize   int
	FileTimeout time.Duration
	Location    *time.Location
	Aliases     map[string][]string
}

// Pipeline processes every CSV currently present in a directory. Each call to
// Run is an independent, idempotent unit of work; overlapping calls, in this
// process or another, are safe.
type Pipeline struct {
	cfg       PipelineConfig
	ledger    *model.Ledger
	repo      *model.SalesRepository
	loader    *Loader
	processor *processors.TransactionProcessor
	metrics   *metrics.Metrics
	cache     CacheInvalidator
}

func NewPipeline(wh *database.Warehouse, cfg PipelineConfig, m *metrics.Metrics, cache CacheInvalidator) *Pipeline {
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 2 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	ledger := model.NewLedger(wh)
	repo := model.NewSalesRepository(wh)
	return &Pipeline{
		cfg:       cfg,
		ledger:    ledger,
		repo:      repo,
		loader:    NewLoader(wh, repo, ledger, cfg.BatchSize),
		processor: processors.NewTransactionProcessor(),
		metrics:   m,
		cache:     cache,
	}
}

// Run processes all files in sourceDir. Per-file failures are reported in the
// summary; only an unreadable directory is returned as an error. If ctx is
// cancelled the run stops before the next file and the summary is marked
// cancelled.
func (p *Pipeline) Run(ctx context.Context, sourceDir string) (*models.RunSummary, error) {
	runID := uuid.NewString()
	ctx = logger.With(ctx, "runID", runID)
	log := logger.FromContext(ctx)

	summary := &models.RunSummary{RunID: runID, SourceDir: sourceDir, StartedAt: time.Now().UTC()}

	files, err := listSourceFiles(sourceDir)
	if err != nil {
		log.Error("Source directory not readable", "sourceDir", sourceDir, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", models.ErrSourceDirNotFound, sourceDir, err)
	}
	log.Info("ETL run started", "sourceDir", sourceDir, "files", len(files))

	for _, path := range files {
		if ctx.Err() != nil {
			summary.Cancelled = true
			log.Warn("ETL run cancelled between files", "remaining", len(files)-len(summary.Files))
			break
		}
		report, err := p.processFile(ctx, runID, path)
		summary.Add(report, err)
	}

	summary.FinishedAt = time.Now().UTC()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)

	p.recordRun(ctx, summary)
	p.metrics.ObserveRun(summary)
	if summary.Inserted > 0 && p.cache != nil {
		p.cache.Invalidate()
	}

	log.Info("ETL run finished",
		"filesProcessed", summary.FilesProcessed,
		"filesSkipped", summary.FilesSkipped,
		"filesFailed", summary.FilesFailed,
		"rowsScanned", summary.RowsScanned,
		"rowsRejected", summary.RowsRejected,
		"inserted", summary.Inserted,
		"deduplicated", summary.Deduplicated,
		"cancelled", summary.Cancelled,
		"duration", summary.Duration.String(),
	)
	return summary, nil
}

// processFile runs one file under its own timeout. The returned error is a
// *models.FileError or *models.StorageError and is nil for loaded and skipped files.
func (p *Pipeline) processFile(ctx context.Context, runID, path string) (models.FileReport, error) {
	name := filepath.Base(path)
	report := models.FileReport{FileName: name}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeout)
	defer cancel()
	ctx = logger.With(ctx, "file", name)
	log := logger.FromContext(ctx)

	fail := func(err error) (models.FileReport, error) {
		report.Status = models.FileStatusFailed
		report.Error = err.Error()
		log.Error("File not loaded, it will be retried next run", "error", err)
		return report, err
	}

	fingerprint, err := model.FingerprintFile(ctx, path)
	if err != nil {
		return fail(&models.FileError{File: name, Err: err})
	}
	report.Fingerprint = fingerprint

	done, err := p.ledger.IsFileProcessed(ctx, name, fingerprint)
	if err != nil {
		return fail(&models.StorageError{File: name, Op: "ledger lookup", Err: err})
	}
	if done {
		report.Status = models.FileStatusSkipped
		log.Debug("File already ingested, skipping", "fingerprint", fingerprint)
		return report, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(&models.FileError{File: name, Err: err})
	}
	defer f.Close()

	hashing := model.NewHashingReader(f)
	reader, err := possales.NewReader(hashing, name, possales.Options{Location: p.cfg.Location, Aliases: p.cfg.Aliases})
	if err != nil {
		return fail(err)
	}

	src := &candidateStream{ctx: ctx, reader: reader, processor: p.processor, hashing: hashing}
	res, err := p.loader.LoadFile(ctx, name, runID, src)
	stats := reader.Stats()
	report.RowsScanned = stats.RowsSeen
	report.RowsRejected = stats.RowsRejected
	report.Inserted = res.Inserted
	report.Deduplicated = res.Deduplicated
	if err != nil {
		return fail(err)
	}

	if res.Fingerprint != fingerprint {
		log.Warn("File changed while it was being read; recorded the parsed version",
			"fingerprintBefore", fingerprint, "fingerprintParsed", res.Fingerprint)
		report.Fingerprint = res.Fingerprint
	}
	report.Status = models.FileStatusLoaded
	log.Info("File loaded",
		"rowsScanned", report.RowsScanned,
		"rowsRejected", report.RowsRejected,
		"inserted", report.Inserted,
		"deduplicated", report.Deduplicated,
	)
	return report, nil
}

func (p *Pipeline) recordRun(ctx context.Context, s *models.RunSummary) {
	// Recorded even when the run was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	run := models.IngestRun{
		RunID:          s.RunID,
		SourceDir:      s.SourceDir,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
		FilesProcessed: s.FilesProcessed,
		FilesSkipped:   s.FilesSkipped,
		FilesFailed:    s.FilesFailed,
		RowsRejected:   s.RowsRejected,
		Inserted:       s.Inserted,
		Deduplicated:   s.Deduplicated,
	}
	if err := s.Err(); err != nil {
		run.ErrorText = err.Error()
	}
	if err := p.repo.InsertIngestRun(ctx, run); err != nil {
		logger.FromContext(ctx).Warn("Could not record ingest run", "error", err)
	}
}

// candidateStream turns reader rows into enriched candidates. Rejected rows are
// logged and skipped; the reader keeps their count.
type candidateStream struct {
	ctx       context.Context
	reader    *possales.Reader
	processor *processors.TransactionProcessor
	hashing   *model.HashingReader
}

func (s *candidateStream) Next() (*models.Transaction, error) {
	for {
		tx, err := s.reader.Next()
		var rowErr *models.RowError
		if errors.As(err, &rowErr) {
			logger.FromContext(s.ctx).Warn("Row rejected", "line", rowErr.Line, "field", rowErr.Field, "reason", rowErr.Reason)
			logger.FromContext(s.ctx).Debug("Rejected row content", "line", rowErr.Line, "row", s.reader.Raw())
			continue
		}
		if err != nil {
			return nil, err
		}
		s.processor.Process(tx)
		return tx, nil
	}
}

func (s *candidateStream) Fingerprint() string { return s.hashing.Fingerprint() }

// listSourceFiles returns the *.csv files of dir (any case), sorted by name.
func listSourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
