package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/pharmstock/internal/datastore"
)

// Transactional document tables pruned by the retention cleanup. They
// all carry a document_date column.
var retentionTables = []string{
	"purchase_orders",
	"branch_orders",
	"supplier_invoices",
	"grns",
}

// RetentionReport lists how many rows each table held past the cutoff,
// and how many were deleted.
type RetentionReport struct {
	Cutoff time.Time
	Tables []RetentionTableReport
}

// RetentionTableReport is the per-table outcome. Err is set when the
// table could not be processed; the other tables still run.
type RetentionTableReport struct {
	Table   string
	Expired int64
	Deleted int64
	Err     error
}

// CheckRetention counts rows older than the cutoff without deleting
// anything.
func CheckRetention(ctx context.Context, store datastore.Store, days int) (RetentionReport, error) {
	return runRetention(ctx, store, days, false)
}

// CleanupRetention deletes document rows older than the cutoff, one
// table at a time. A failure in one table does not stop the others.
func CleanupRetention(ctx context.Context, store datastore.Store, days int) (RetentionReport, error) {
	return runRetention(ctx, store, days, true)
}

func runRetention(ctx context.Context, store datastore.Store, days int, prune bool) (RetentionReport, error) {
	if days <= 0 {
		return RetentionReport{}, fmt.Errorf("retention days must be positive, got %d", days)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	report := RetentionReport{Cutoff: cutoff}

	for _, table := range retentionTables {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("retention interrupted: %w", err)
		}

		tableReport := RetentionTableReport{Table: table}

		expired, err := countScalar(ctx, store, fmt.Sprintf(
			"SELECT COUNT(*) AS n FROM %s WHERE document_date < $1",
			datastore.QuoteIdentifier(table),
		), cutoff)
		if err != nil {
			tableReport.Err = fmt.Errorf("count expired rows: %w", err)
			slog.Warn("retention check failed", "table", table, "error", err)
			report.Tables = append(report.Tables, tableReport)
			continue
		}
		tableReport.Expired = expired

		if prune && expired > 0 {
			deleted, err := store.Execute(ctx, fmt.Sprintf(
				"DELETE FROM %s WHERE document_date < $1",
				datastore.QuoteIdentifier(table),
			), cutoff)
			if err != nil {
				tableReport.Err = fmt.Errorf("delete expired rows: %w", err)
				slog.Warn("retention cleanup failed", "table", table, "error", err)
				report.Tables = append(report.Tables, tableReport)
				continue
			}
			tableReport.Deleted = deleted
			slog.Info("expired rows deleted", "table", table, "deleted", deleted)
		} else {
			slog.Info("expired rows", "table", table, "expired", expired)
		}

		report.Tables = append(report.Tables, tableReport)
	}

	return report, nil
}
