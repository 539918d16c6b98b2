package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/pharmstock/internal/datastore"
)

// TableSize holds human-readable size figures for one table.
type TableSize struct {
	TotalSize string
	TableSize string
	IndexSize string
}

// VacuumResult pairs the before and after sizes of a full vacuum.
type VacuumResult struct {
	Rows   int64
	Before TableSize
	After  TableSize
}

// TableSizeOf reads the current on-disk size of a table.
func TableSizeOf(ctx context.Context, store datastore.Store, table string) (TableSize, error) {
	rows, err := store.Query(ctx, `
		SELECT
			pg_size_pretty(pg_total_relation_size($1::regclass)) AS total_size,
			pg_size_pretty(pg_relation_size($1::regclass)) AS table_size,
			pg_size_pretty(pg_total_relation_size($1::regclass) - pg_relation_size($1::regclass)) AS index_size
	`, table)
	if err != nil {
		return TableSize{}, fmt.Errorf("%s: read table size: %w", table, err)
	}
	if len(rows) == 0 {
		return TableSize{}, fmt.Errorf("%s: size query returned no rows", table)
	}

	size := TableSize{}
	size.TotalSize, _ = rows[0]["total_size"].(string)
	size.TableSize, _ = rows[0]["table_size"].(string)
	size.IndexSize, _ = rows[0]["index_size"].(string)
	return size, nil
}

// VacuumFullCurrentStock rewrites current_stock to reclaim disk space.
// It takes an exclusive lock on the table for the duration: nothing
// else can read or write current_stock until it finishes. Must not run
// while the application is serving traffic.
func VacuumFullCurrentStock(ctx context.Context, store datastore.Store) (VacuumResult, error) {
	result := VacuumResult{}

	before, err := TableSizeOf(ctx, store, "current_stock")
	if err != nil {
		return result, err
	}
	result.Before = before

	rows, err := countScalar(ctx, store, "SELECT COUNT(*) AS n FROM current_stock")
	if err != nil {
		return result, fmt.Errorf("count stock rows: %w", err)
	}
	result.Rows = rows

	slog.Info("table size before vacuum",
		"rows", rows,
		"total", before.TotalSize,
		"table", before.TableSize,
		"index", before.IndexSize,
	)
	slog.Warn("vacuum full takes an exclusive lock on current_stock")

	// Must run in autocommit mode, never inside a transaction.
	if _, err := store.Exec(ctx, "VACUUM (FULL, ANALYZE) current_stock"); err != nil {
		return result, fmt.Errorf("vacuum full: %w", err)
	}

	after, err := TableSizeOf(ctx, store, "current_stock")
	if err != nil {
		return result, err
	}
	result.After = after

	slog.Info("table size after vacuum",
		"total", after.TotalSize,
		"table", after.TableSize,
		"index", after.IndexSize,
	)

	return result, nil
}
