package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/pharmstock/internal/datastore"
)

// DuplicateReport summarizes the duplicate state of current_stock.
// Keys are normalized with UPPER(TRIM(...)) on branch and company, so
// "NILA HQ " and "nila hq" count as the same branch.
type DuplicateReport struct {
	Total      int64
	Unique     int64
	Duplicates int64
}

// CheckDuplicates counts duplicate stock rows without modifying
// anything.
func CheckDuplicates(ctx context.Context, store datastore.Store) (DuplicateReport, error) {
	total, err := countScalar(ctx, store, "SELECT COUNT(*) AS n FROM current_stock")
	if err != nil {
		return DuplicateReport{}, fmt.Errorf("count stock rows: %w", err)
	}

	unique, err := countScalar(ctx, store, `
		SELECT COUNT(DISTINCT (UPPER(TRIM(branch)), UPPER(TRIM(company)), item_code)) AS n
		FROM current_stock
	`)
	if err != nil {
		return DuplicateReport{}, fmt.Errorf("count unique keys: %w", err)
	}

	report := DuplicateReport{
		Total:      total,
		Unique:     unique,
		Duplicates: total - unique,
	}

	slog.Info("duplicate check",
		"total", report.Total,
		"unique", report.Unique,
		"duplicates", report.Duplicates,
	)

	return report, nil
}

// CleanupDuplicates deletes every stock row except the one with the
// highest id per normalized key, then reclaims the space with a VACUUM
// outside any transaction. Returns the number of deleted rows.
func CleanupDuplicates(ctx context.Context, store datastore.Store) (int64, error) {
	report, err := CheckDuplicates(ctx, store)
	if err != nil {
		return 0, err
	}
	if report.Duplicates == 0 {
		slog.Info("no duplicates found, nothing to clean")
		return 0, nil
	}

	deleted, err := store.Execute(ctx, `
		DELETE FROM current_stock a
		USING current_stock b
		WHERE UPPER(TRIM(a.branch)) = UPPER(TRIM(b.branch))
		  AND UPPER(TRIM(a.company)) = UPPER(TRIM(b.company))
		  AND a.item_code = b.item_code
		  AND a.id < b.id
	`)
	if err != nil {
		return 0, fmt.Errorf("delete duplicate rows: %w", err)
	}

	slog.Info("duplicates deleted", "deleted", deleted, "remaining", report.Total-deleted)

	// VACUUM cannot run inside a transaction block.
	if _, err := store.Exec(ctx, "VACUUM ANALYZE current_stock"); err != nil {
		return deleted, fmt.Errorf("vacuum after cleanup: %w", err)
	}

	return deleted, nil
}

func countScalar(ctx context.Context, store datastore.Store, query string, args ...any) (int64, error) {
	rows, err := store.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	return toInt64(rows[0]["n"])
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", value)
	}
}
