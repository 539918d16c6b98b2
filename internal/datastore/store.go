package datastore

import (
	"context"
	"strings"
)

// Row is one result row as a column name to value mapping.
type Row map[string]any

// Store is the generic query/update surface used by the loader and the
// maintenance routines. PostgresStore is the production implementation;
// tests substitute fakes.
type Store interface {
	// Query executes a read-only parameterized statement. Zero matching
	// rows yield an empty slice, not an error.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Execute runs a mutating statement inside a transaction that
	// commits on success and rolls back on any error. Returns the
	// affected-row count.
	Execute(ctx context.Context, query string, args ...any) (int64, error)

	// Exec runs a single statement in autocommit mode, outside any
	// explicit transaction. Required for VACUUM and friends.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all pooled connections.
	Close()
}

// Tx is a transaction handle for multi-statement atomic operations.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is the transactional subset of the store used by bulk loaders.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Begin(ctx context.Context) (Tx, error)
}

// QuoteIdentifier escapes a table or column name for interpolation into
// SQL text. Identifiers in this system come from compile-time
// allow-lists, never from untrusted input; quoting guards against
// reserved words and odd characters, not injection.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
