package models

import (
	"errors"
	"time"
)

// FileStatus is the outcome of one file within a run.
type FileStatus string

const (
	FileStatusLoaded  FileStatus = "loaded"
	FileStatusSkipped FileStatus = "skipped" // fingerprint already in the ledger
	FileStatusFailed  FileStatus = "failed"
)

// FileReport holds the counters for a single file.
type FileReport struct {
	FileName     string     `json:"file_name"`
	Fingerprint  string     `json:"fingerprint"`
	Status       FileStatus `json:"status"`
	RowsScanned  int        `json:"rows_scanned"`
	RowsRejected int        `json:"rows_rejected"`
	Inserted     int        `json:"inserted"`
	Deduplicated int        `json:"deduplicated"`
	Error        string     `json:"error,omitempty"`
}

// RunSummary is returned by every invocation of the pipeline.
type RunSummary struct {
	RunID          string        `json:"run_id"`
	SourceDir      string        `json:"source_dir"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	FilesFailed    int           `json:"files_failed"`
	RowsScanned    int           `json:"rows_scanned"`
	RowsRejected   int           `json:"rows_rejected"`
	Inserted       int           `json:"inserted"`
	Deduplicated   int           `json:"deduplicated"`
	Cancelled      bool          `json:"cancelled"`
	Files          []FileReport  `json:"files"`
	Errors         []error       `json:"-"`
	Duration       time.Duration `json:"duration"`
}

// Add folds a file report into the run totals.
func (s *RunSummary) Add(r FileReport, err error) {
	s.Files = append(s.Files, r)
	s.RowsScanned += r.RowsScanned
	s.RowsRejected += r.RowsRejected
	s.Inserted += r.Inserted
	s.Deduplicated += r.Deduplicated
	switch r.Status {
	case FileStatusLoaded:
		s.FilesProcessed++
	case FileStatusSkipped:
		s.FilesSkipped++
	case FileStatusFailed:
		s.FilesFailed++
	}
	if err != nil {
		s.Errors = append(s.Errors, err)
	}
}

// Err joins the file and storage errors surfaced during the run, or nil.
func (s *RunSummary) Err() error {
	return errors.Join(s.Errors...)
}

// IngestRun is a persisted row of the ingest_runs history table.
type IngestRun struct {
	RunID          string    `json:"run_id"`
	SourceDir      string    `json:"source_dir"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	FilesProcessed int       `json:"files_processed"`
	FilesSkipped   int       `json:"files_skipped"`
	FilesFailed    int       `json:"files_failed"`
	RowsRejected   int       `json:"rows_rejected"`
	Inserted       int       `json:"inserted"`
	Deduplicated   int       `json:"deduplicated"`
	ErrorText      string    `json:"error_text,omitempty"`
}
