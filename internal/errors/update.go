package errors

import (
	stdErrors "errors"
	"fmt"
)

// UpdateError represents a failed write. The enclosing transaction has
// been rolled back and the affected-row count is zero.
type UpdateError struct {
	Op  string // table + operation, e.g. "current_stock: replace all"
	Err error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update failed (%s): %v", e.Op, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// NewUpdateError wraps err with the failing statement's intent.
func NewUpdateError(op string, err error) *UpdateError {
	return &UpdateError{Op: op, Err: err}
}

// IsUpdateError reports whether err is an UpdateError (even when wrapped).
func IsUpdateError(err error) bool {
	var updateErr *UpdateError
	return stdErrors.As(err, &updateErr)
}
