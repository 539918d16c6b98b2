package errors

import (
	stdErrors "errors"
	"fmt"
)

// QueryError represents a failed read: a malformed statement or lost
// connectivity while executing a SELECT.
type QueryError struct {
	Op  string // table + operation, e.g. "current_stock: count rows"
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%s): %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError wraps err with the failing statement's intent.
func NewQueryError(op string, err error) *QueryError {
	return &QueryError{Op: op, Err: err}
}

// IsQueryError reports whether err is a QueryError (even when wrapped).
func IsQueryError(err error) bool {
	var queryErr *QueryError
	return stdErrors.As(err, &queryErr)
}
