package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/pharmstock/internal/errors"
)

// ColumnInfo describes one column of a SQLite table as reported by
// PRAGMA table_info.
type ColumnInfo struct {
	Name         string
	DeclaredType string
	NotNull      bool
	DefaultValue *string
	PrimaryKey   bool
}

// SQLiteSource is a read-only view of a SQLite database file used as
// the migration source.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// OpenSQLiteSource opens the SQLite database at path and verifies it is
// reachable. For plain file paths the file must already exist; the
// sqlite driver would otherwise silently create an empty database and
// the migration would "succeed" with zero tables.
func OpenSQLiteSource(ctx context.Context, path string) (*SQLiteSource, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.NewConnectionError("open source database", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewConnectionError("open source database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewConnectionError("ping source database", err)
	}

	return &SQLiteSource{db: db, path: path}, nil
}

// Path returns the path the source was opened with.
func (s *SQLiteSource) Path() string {
	return s.path
}

// TableNames lists user tables in the source, excluding SQLite's own
// bookkeeping tables.
func (s *SQLiteSource) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, errors.NewQueryError("list source tables", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.NewQueryError("scan table name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryError("iterate table names", err)
	}

	return names, nil
}

// TableSchema returns the columns of a source table in declaration order.
func (s *SQLiteSource) TableSchema(ctx context.Context, table string) ([]ColumnInfo, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdentifier(table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewQueryError(fmt.Sprintf("%s: read schema", table), err)
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, errors.NewQueryError(fmt.Sprintf("%s: scan column info", table), err)
		}
		col := ColumnInfo{
			Name:         name,
			DeclaredType: colType,
			NotNull:      notNull != 0,
			PrimaryKey:   pk != 0,
		}
		if defaultVal.Valid {
			v := defaultVal.String
			col.DefaultValue = &v
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryError(fmt.Sprintf("%s: iterate columns", table), err)
	}

	if len(columns) == 0 {
		return nil, errors.NewQueryError(fmt.Sprintf("%s: read schema", table), fmt.Errorf("table not found"))
	}

	return columns, nil
}

// CountRows returns the number of rows in a source table.
func (s *SQLiteSource) CountRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteIdentifier(table))
	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, errors.NewQueryError(fmt.Sprintf("%s: count rows", table), err)
	}
	return count, nil
}

// ReadBatch reads up to limit rows starting at offset, in rowid order so
// successive batches never overlap. Returns the column names and the row
// values in matching order.
func (s *SQLiteSource) ReadBatch(ctx context.Context, table string, limit, offset int64) ([]string, [][]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY rowid LIMIT ? OFFSET ?", QuoteIdentifier(table))
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, nil, errors.NewQueryError(fmt.Sprintf("%s: read batch", table), err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.NewQueryError(fmt.Sprintf("%s: read columns", table), err)
	}

	var batch [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, errors.NewQueryError(fmt.Sprintf("%s: scan row", table), err)
		}
		batch = append(batch, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.NewQueryError(fmt.Sprintf("%s: iterate rows", table), err)
	}

	return columns, batch, nil
}

// Close releases the underlying database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
