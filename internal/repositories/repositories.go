package repositories

import (
	"context"
	"database/sql"
	"time"
)

// querier is satisfied by both [*sql.DB] and [*sql.Tx].
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both [*sql.Row] and [*sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// now is the clock used for created_at, updated_at and active_at columns. Stored times are UTC.
var now = func() time.Time { return time.Now().UTC() }
