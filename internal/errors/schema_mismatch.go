package errors

import (
	stdErrors "errors"
	"fmt"
)

// SchemaMismatch reports a migration-time type inference that produced
// an incompatible target column. Logged per table; never aborts the
// overall migration.
type SchemaMismatch struct {
	Table      string
	Column     string
	SourceType string
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch in %s.%s: cannot map source type %q", e.Table, e.Column, e.SourceType)
}

// NewSchemaMismatch creates a SchemaMismatch for the given column.
func NewSchemaMismatch(table, column, sourceType string) *SchemaMismatch {
	return &SchemaMismatch{Table: table, Column: column, SourceType: sourceType}
}

// IsSchemaMismatch reports whether err is a SchemaMismatch (even when wrapped).
func IsSchemaMismatch(err error) bool {
	var mismatchErr *SchemaMismatch
	return stdErrors.As(err, &mismatchErr)
}
