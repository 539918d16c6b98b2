package errors

import (
	stdErrors "errors"
	"fmt"
)

// ConnectionError represents a pool or network level failure.
// It is fatal for the current operation but retryable by the caller.
type ConnectionError struct {
	Op  string // what we were trying to do, e.g. "acquire connection"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError wraps err with the failing operation's intent.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

// IsConnectionError reports whether err is a ConnectionError (even when wrapped).
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return stdErrors.As(err, &connErr)
}
