package datastore

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lepinkainen/pharmstock/internal/errors"
)

// PoolOptions configures the PostgreSQL connection pool.
type PoolOptions struct {
	// MinConns and MaxConns bound the pool size. Defaults: 1 and 5.
	MinConns int
	MaxConns int

	// AcquireTimeout bounds how long an operation waits for a free
	// connection before failing with a ConnectionError.
	AcquireTimeout time.Duration

	// PreferIPv4 dials the database host over IPv4 only. Some managed
	// Postgres hosts publish IPv6 addresses that free-tier networks
	// cannot reach; this must be configured explicitly, never guessed
	// from the connection string.
	PreferIPv4 bool
}

// PostgresStore implements Store and DB on top of a pgx connection pool.
type PostgresStore struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

var _ Store = (*PostgresStore)(nil)
var _ DB = (*PostgresStore)(nil)

// NewPostgresStore connects to the database described by connString and
// verifies the connection with a ping before returning.
func NewPostgresStore(ctx context.Context, connString string, opts PoolOptions) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.NewConnectionError("parse connection string", err)
	}

	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	} else {
		cfg.MinConns = 1
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	} else {
		cfg.MaxConns = 5
	}

	if opts.PreferIPv4 {
		dialer := &net.Dialer{}
		cfg.ConnConfig.DialFunc = func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.NewConnectionError("create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewConnectionError("ping database", err)
	}

	return &PostgresStore{
		pool:           pool,
		acquireTimeout: opts.AcquireTimeout,
	}, nil
}

// acquire leases one connection from the pool, honoring the configured
// acquire timeout. Callers must Release the connection on every path.
func (s *PostgresStore) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx := ctx
	var cancel context.CancelFunc
	if s.acquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}

	conn, err := s.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, errors.NewConnectionError("acquire connection", err)
	}
	return conn, nil
}

// Query executes a read-only statement and returns rows as column->value
// maps. Zero matching rows yield an empty slice and a nil error.
func (s *PostgresStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryError("execute query", err)
	}
	defer rows.Close()

	results := []Row{}
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.NewQueryError("scan row", err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryError("iterate rows", err)
	}

	return results, nil
}

// Execute runs a mutating statement inside a transaction: commit on
// success, rollback on any error. Returns the affected-row count, which
// is zero whenever an error is returned.
func (s *PostgresStore) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, errors.NewUpdateError("begin transaction", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, errors.NewUpdateError("execute statement", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.NewUpdateError("commit transaction", err)
	}

	return tag.RowsAffected(), nil
}

// Exec runs a single statement in autocommit mode. VACUUM and other
// maintenance commands refuse to run inside a transaction block, so
// this bypasses the transactional wrapper entirely.
func (s *PostgresStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.NewUpdateError("execute statement", err)
	}
	return tag.RowsAffected(), nil
}

// Begin starts a transaction on a dedicated pooled connection. The
// connection is released when the transaction commits or rolls back.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, errors.NewUpdateError("begin transaction", err)
	}

	return &postgresTx{tx: tx, conn: conn}, nil
}

// postgresTx wraps pgx.Tx so callers see the package-level Tx interface.
type postgresTx struct {
	tx   pgx.Tx
	conn *pgxpool.Conn
	done bool
}

func (t *postgresTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	t.release()
	return err
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	t.release()
	return err
}

func (t *postgresTx) release() {
	if !t.done {
		t.done = true
		t.conn.Release()
	}
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.NewConnectionError("ping database", err)
	}
	return nil
}

// Close releases all pooled connections.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// ServerVersion returns the PostgreSQL server version string.
func (s *PostgresStore) ServerVersion(ctx context.Context) (string, error) {
	rows, err := s.Query(ctx, "SELECT version()")
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errors.NewQueryError("server version", fmt.Errorf("no rows returned"))
	}
	version, _ := rows[0]["version"].(string)
	return version, nil
}

// TableExists reports whether a table exists in the public schema.
func (s *PostgresStore) TableExists(ctx context.Context, tableName string) (bool, error) {
	rows, err := s.Query(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			  AND table_name = $1
		) AS present
	`, tableName)
	if err != nil {
		return false, fmt.Errorf("%s: check table existence: %w", tableName, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	present, _ := rows[0]["present"].(bool)
	return present, nil
}

// TableNames returns all base tables in the public schema, sorted.
func (s *PostgresStore) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["table_name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
