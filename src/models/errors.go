package models

import (
	"errors"
	"fmt"
)

var (
	ErrRowRejected       = errors.New("row rejected")
	ErrFileUnreadable    = errors.New("file unreadable")
	ErrStorageFailed     = errors.New("warehouse operation failed")
	ErrMissingHeader     = errors.New("missing required header")
	ErrInvalidEncoding   = errors.New("invalid text encoding")
	ErrSourceDirNotFound = errors.New("source directory not readable")
)

// RowError describes a single malformed row. It never escapes the file it was found in.
type RowError struct {
	File   string
	Line   int
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s:%d: field %q: %s", e.File, e.Line, e.Field, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrRowRejected }

// FileError aborts the processing of one file. The ledger entry is left untouched
// so the file is retried on the next run.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() []error { return []error{ErrFileUnreadable, e.Err} }

// StorageError is any warehouse failure other than the expected duplicate key.
type StorageError struct {
	File string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("file %s: %s: %v", e.File, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageFailed, e.Err} }
