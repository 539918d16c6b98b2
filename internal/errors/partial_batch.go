package errors

import (
	stdErrors "errors"
	"fmt"
)

// RecordFailure describes one rejected record within a batch load.
type RecordFailure struct {
	Index  int    // position of the record in the submitted batch
	Reason string
}

// PartialBatchFailure reports a batch load where some records failed.
// The successful count and the per-record failures are both carried so
// callers never have to guess what was dropped.
type PartialBatchFailure struct {
	Table    string
	Written  int64
	Failures []RecordFailure
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%s: %d records written, %d failed", e.Table, e.Written, len(e.Failures))
}

// NewPartialBatchFailure creates a PartialBatchFailure for the given table.
func NewPartialBatchFailure(table string, written int64, failures []RecordFailure) *PartialBatchFailure {
	return &PartialBatchFailure{Table: table, Written: written, Failures: failures}
}

// IsPartialBatchFailure reports whether err is a PartialBatchFailure (even when wrapped).
func IsPartialBatchFailure(err error) bool {
	var batchErr *PartialBatchFailure
	return stdErrors.As(err, &batchErr)
}
