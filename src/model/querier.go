package model

import (
	"context"
	"database/sql"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx, so the same statement
// can run alone or inside the loader's batch transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
