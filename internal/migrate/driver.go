package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/pharmstock/internal/datastore"
)

// DefaultBatchSize is how many rows are copied per insert statement.
const DefaultBatchSize = 1000

// Tables eligible for migration, in dependency order: master data
// first, then stock, then the transactional document tables.
var migrationOrder = []string{
	"items",
	"current_stock",
	"stock_data",
	"purchase_orders",
	"branch_orders",
	"supplier_invoices",
	"grns",
	"inventory_analysis",
}

// Source is the read side of a migration. SQLiteSource implements it.
type Source interface {
	TableNames(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, table string) ([]datastore.ColumnInfo, error)
	CountRows(ctx context.Context, table string) (int64, error)
	ReadBatch(ctx context.Context, table string, limit, offset int64) ([]string, [][]any, error)
}

// Target is the write side: autocommit DDL plus row inserts.
type Target interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// TableReport summarizes the outcome for one table.
type TableReport struct {
	Table       string
	RowsRead    int64
	RowsWritten int64
	Skipped     bool
	SkipReason  string
}

// Driver copies allow-listed tables from a SQLite source into the
// PostgreSQL target, creating target schemas as it goes.
type Driver struct {
	source    Source
	target    Target
	batchSize int64
}

// NewDriver creates a migration driver. batchSize <= 0 selects the
// default.
func NewDriver(source Source, target Target, batchSize int) *Driver {
	size := int64(batchSize)
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Driver{source: source, target: target, batchSize: size}
}

// Run migrates every eligible table present in the source. Tables are
// isolated from each other: a failure in one is reported and the rest
// still migrate. The returned error is non-nil only when the source
// itself cannot be enumerated.
func (d *Driver) Run(ctx context.Context) ([]TableReport, error) {
	available, err := d.source.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate source tables: %w", err)
	}

	present := make(map[string]bool, len(available))
	for _, name := range available {
		present[name] = true
	}

	var reports []TableReport
	for _, table := range migrationOrder {
		if !present[table] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("migration interrupted: %w", err)
		}

		report := d.migrateTable(ctx, table)
		reports = append(reports, report)
	}

	return reports, nil
}

// migrateTable runs the full pipeline for one table: discover schema,
// create the target table and its indexes, copy rows in batches, verify
// the copied count.
func (d *Driver) migrateTable(ctx context.Context, table string) TableReport {
	report := TableReport{Table: table}

	schema, err := d.source.TableSchema(ctx, table)
	if err != nil {
		return skip(report, fmt.Sprintf("read source schema: %v", err))
	}

	ddl := buildCreateTable(table, schema)

	if _, err := d.target.Exec(ctx, ddl); err != nil {
		return skip(report, fmt.Sprintf("create target table: %v", err))
	}

	d.createIndexes(ctx, table, schema)

	count, err := d.source.CountRows(ctx, table)
	if err != nil {
		return skip(report, fmt.Sprintf("count source rows: %v", err))
	}
	report.RowsRead = count
	if count == 0 {
		slog.Info("table is empty, nothing to copy", "table", table)
		return report
	}

	slog.Info("copying table", "table", table, "rows", count)

	var offset int64
	for offset < count {
		columns, rows, err := d.source.ReadBatch(ctx, table, d.batchSize, offset)
		if err != nil {
			return skip(report, fmt.Sprintf("read batch at offset %d: %v", offset, err))
		}
		if len(rows) == 0 {
			break
		}

		written, err := d.writeBatch(ctx, table, columns, rows)
		if err != nil {
			return skip(report, fmt.Sprintf("write batch at offset %d: %v", offset, err))
		}

		report.RowsWritten += written
		offset += int64(len(rows))
	}

	if report.RowsWritten < report.RowsRead {
		slog.Warn("copied fewer rows than read, duplicates were skipped",
			"table", table,
			"read", report.RowsRead,
			"written", report.RowsWritten,
		)
	} else {
		slog.Info("table migrated", "table", table, "rows", report.RowsWritten)
	}

	return report
}

// createIndexes creates the natural-key unique index and the secondary
// indexes, skipping any whose columns the source table lacks.
func (d *Driver) createIndexes(ctx context.Context, table string, schema []datastore.ColumnInfo) {
	if idx, ok := naturalKeyIndex(table); ok {
		if hasColumns(schema, idx.columns) {
			if _, err := d.target.Exec(ctx, idx.ddl); err != nil {
				slog.Warn("create unique index failed", "table", table, "error", err)
			}
		} else {
			slog.Warn("natural key columns missing in source, unique index skipped", "table", table)
		}
	}

	for _, idx := range secondaryIndexes(table) {
		if !hasColumns(schema, idx.columns) {
			slog.Warn("index columns missing in source, index skipped", "table", table)
			continue
		}
		if _, err := d.target.Exec(ctx, idx.ddl); err != nil {
			slog.Warn("create index failed", "table", table, "error", err)
		}
	}
}

// writeBatch inserts one batch with a single multi-row statement. The
// affected-row count excludes conflict-skipped duplicates.
func (d *Driver) writeBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	statement := buildBatchInsert(table, columns, len(rows))

	args := make([]any, 0, len(rows)*len(columns))
	for _, row := range rows {
		args = append(args, row...)
	}

	return d.target.Exec(ctx, statement, args...)
}

func skip(report TableReport, reason string) TableReport {
	report.Skipped = true
	report.SkipReason = reason
	return report
}
