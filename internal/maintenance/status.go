package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/pharmstock/internal/datastore"
	"github.com/lepinkainen/pharmstock/internal/loader"
)

// StatusReport is a snapshot of the target database: server version
// plus per-table row counts for the known application tables.
type StatusReport struct {
	ServerVersion string
	Tables        []TableStatus
}

// TableStatus is one table's row count. Missing tables are reported
// with Present false rather than failing the whole report.
type TableStatus struct {
	Table   string
	Present bool
	Rows    int64
}

// versioner is implemented by PostgresStore.
type versioner interface {
	ServerVersion(ctx context.Context) (string, error)
	TableExists(ctx context.Context, table string) (bool, error)
}

// Status gathers a health snapshot of the target database.
func Status(ctx context.Context, store datastore.Store) (StatusReport, error) {
	report := StatusReport{}

	v, ok := store.(versioner)
	if !ok {
		return report, fmt.Errorf("store does not expose server metadata")
	}

	version, err := v.ServerVersion(ctx)
	if err != nil {
		return report, fmt.Errorf("read server version: %w", err)
	}
	report.ServerVersion = version

	for _, table := range loader.TableNames() {
		status := TableStatus{Table: table}

		exists, err := v.TableExists(ctx, table)
		if err != nil {
			return report, err
		}
		if exists {
			rows, err := countScalar(ctx, store, fmt.Sprintf(
				"SELECT COUNT(*) AS n FROM %s", datastore.QuoteIdentifier(table),
			))
			if err != nil {
				return report, fmt.Errorf("%s: count rows: %w", table, err)
			}
			status.Present = true
			status.Rows = rows
		}

		report.Tables = append(report.Tables, status)
	}

	slog.Info("status collected", "tables", len(report.Tables))
	return report, nil
}
