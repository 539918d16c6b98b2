package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/pharmstock/internal/datastore"
	"github.com/lepinkainen/pharmstock/internal/errors"
)

// Mode selects how the loader resolves conflicts with existing rows.
type Mode string

const (
	// ReplaceAll clears the table and inserts the whole batch in one
	// transaction. Either everything lands or nothing does.
	ReplaceAll Mode = "replace-all"

	// UpsertByKey inserts each record, overwriting the non-key columns
	// of any existing row with the same natural key.
	UpsertByKey Mode = "upsert"

	// InsertSkipDuplicates inserts each record and silently skips rows
	// whose natural key already exists. The written count reflects only
	// genuinely new rows.
	InsertSkipDuplicates Mode = "insert-skip"
)

// Result summarizes one load: how many rows were written and which
// records failed. Partial failure is reported structurally, never
// silently dropped.
type Result struct {
	Written  int64
	Failures []errors.RecordFailure
}

// Err returns a PartialBatchFailure describing the failed records, or
// nil when every record was written.
func (r Result) Err(table string) error {
	if len(r.Failures) == 0 {
		return nil
	}
	return errors.NewPartialBatchFailure(table, r.Written, r.Failures)
}

// Loader writes batches of records into target tables.
type Loader struct {
	db datastore.DB
}

// New creates a loader on top of a transactional database handle.
func New(db datastore.DB) *Loader {
	return &Loader{db: db}
}

// Load writes records into the table described by spec using the given
// mode. Records that fail validation are reported in the result; the
// valid remainder still loads. Database-level errors abort the load.
func (l *Loader) Load(ctx context.Context, spec TableSpec, records []Record, mode Mode) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}

	if mode == UpsertByKey && !spec.HasNaturalKey() {
		return Result{}, fmt.Errorf("%s: upsert requires a natural key", spec.Name)
	}

	columns, valid, failures, err := validateBatch(spec, records)
	if err != nil {
		return Result{}, err
	}
	if len(valid) == 0 {
		return Result{Failures: failures}, nil
	}

	slog.Debug("loading batch",
		"table", spec.Name,
		"mode", string(mode),
		"records", len(records),
		"valid", len(valid),
	)

	var written int64
	switch mode {
	case ReplaceAll:
		written, err = l.replaceAll(ctx, spec, columns, valid)
	case UpsertByKey:
		written, err = l.insertEach(ctx, spec, valid, buildUpsert(spec, columns), &failures)
	case InsertSkipDuplicates:
		written, err = l.insertEach(ctx, spec, valid, buildInsertSkip(spec, columns), &failures)
	default:
		return Result{}, fmt.Errorf("unknown load mode %q", mode)
	}
	if err != nil {
		return Result{}, err
	}

	result := Result{Written: written, Failures: failures}
	if len(failures) > 0 {
		slog.Warn("batch loaded with failures",
			"table", spec.Name,
			"written", written,
			"failed", len(failures),
		)
	} else {
		slog.Info("batch loaded", "table", spec.Name, "written", written)
	}

	return result, nil
}

// replaceAll clears the table and inserts every valid record inside a
// single transaction.
func (l *Loader) replaceAll(ctx context.Context, spec TableSpec, columns []string, valid []validRecord) (int64, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, buildDeleteAll(spec)); err != nil {
		_ = tx.Rollback(ctx)
		return 0, errors.NewUpdateError(fmt.Sprintf("%s: clear table", spec.Name), err)
	}

	insert := buildInsert(spec, columns)
	var written int64
	for _, rec := range valid {
		n, err := tx.Exec(ctx, insert, rec.args...)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, errors.NewUpdateError(fmt.Sprintf("%s: insert record %d", spec.Name, rec.index), err)
		}
		written += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.NewUpdateError(fmt.Sprintf("%s: commit replace", spec.Name), err)
	}

	return written, nil
}

// insertEach runs one statement per record in autocommit mode, so a bad
// record cannot poison the rest of the batch. Failures are recorded and
// the loop continues.
func (l *Loader) insertEach(ctx context.Context, spec TableSpec, valid []validRecord, statement string, failures *[]errors.RecordFailure) (int64, error) {
	var written int64
	for _, rec := range valid {
		n, err := l.db.Exec(ctx, statement, rec.args...)
		if err != nil {
			if ctx.Err() != nil {
				return written, errors.NewUpdateError(fmt.Sprintf("%s: load interrupted", spec.Name), ctx.Err())
			}
			*failures = append(*failures, errors.RecordFailure{
				Index:  rec.index,
				Reason: err.Error(),
			})
			continue
		}
		written += n
	}
	return written, nil
}

// validRecord pairs a record's original batch index with its argument
// values in column order.
type validRecord struct {
	index int
	args  []any
}

// validateBatch normalizes the batch and splits it into loadable records
// and per-record failures. The column set is taken from the first record
// whose columns are all allow-listed; every other record must match it
// exactly.
func validateBatch(spec TableSpec, records []Record) ([]string, []validRecord, []errors.RecordFailure, error) {
	allowed := make(map[string]bool, len(spec.Columns))
	for _, col := range spec.Columns {
		allowed[col] = true
	}

	var (
		columns  []string
		valid    []validRecord
		failures []errors.RecordFailure
	)

	for i, record := range records {
		rec := record.Normalize()

		if unknown := firstUnknownColumn(rec, allowed); unknown != "" {
			failures = append(failures, errors.RecordFailure{
				Index:  i,
				Reason: fmt.Sprintf("unknown column %s", unknown),
			})
			continue
		}

		if columns == nil {
			columns = columnsInSpecOrder(spec, rec)
			if len(columns) == 0 {
				return nil, nil, nil, fmt.Errorf("%s: batch has no loadable columns", spec.Name)
			}
		}

		args, missing := argsFor(rec, columns)
		if missing != "" {
			failures = append(failures, errors.RecordFailure{
				Index:  i,
				Reason: fmt.Sprintf("missing column %s", missing),
			})
			continue
		}
		if len(rec) != len(columns) {
			failures = append(failures, errors.RecordFailure{
				Index:  i,
				Reason: "column set differs from rest of batch",
			})
			continue
		}

		valid = append(valid, validRecord{index: i, args: args})
	}

	return columns, valid, failures, nil
}

func firstUnknownColumn(rec Record, allowed map[string]bool) string {
	for col := range rec {
		if !allowed[col] {
			return col
		}
	}
	return ""
}

func columnsInSpecOrder(spec TableSpec, rec Record) []string {
	var columns []string
	for _, col := range spec.Columns {
		if _, ok := rec[col]; ok {
			columns = append(columns, col)
		}
	}
	return columns
}

func argsFor(rec Record, columns []string) ([]any, string) {
	args := make([]any, len(columns))
	for i, col := range columns {
		value, ok := rec[col]
		if !ok {
			return nil, col
		}
		args[i] = value
	}
	return args, ""
}
