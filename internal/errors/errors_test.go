package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionError(t *testing.T) {
	cause := stdErrors.New("dial tcp: timeout")
	err := NewConnectionError("acquire connection", cause)

	assert.Contains(t, err.Error(), "acquire connection")
	assert.True(t, IsConnectionError(err))
	assert.True(t, IsConnectionError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsConnectionError(cause))
	assert.Equal(t, cause, stdErrors.Unwrap(err))
}

func TestQueryAndUpdateErrors(t *testing.T) {
	cause := stdErrors.New("syntax error")

	qErr := NewQueryError("current_stock: count rows", cause)
	assert.True(t, IsQueryError(qErr))
	assert.False(t, IsUpdateError(qErr))
	assert.Contains(t, qErr.Error(), "current_stock: count rows")

	uErr := NewUpdateError("current_stock: replace all", cause)
	assert.True(t, IsUpdateError(uErr))
	assert.False(t, IsQueryError(uErr))
	assert.Equal(t, cause, stdErrors.Unwrap(uErr))
}

func TestPartialBatchFailure(t *testing.T) {
	failures := []RecordFailure{
		{Index: 3, Reason: "missing column item_code"},
		{Index: 7, Reason: "missing column branch"},
	}
	err := NewPartialBatchFailure("purchase_orders", 98, failures)

	assert.True(t, IsPartialBatchFailure(err))
	assert.True(t, IsPartialBatchFailure(fmt.Errorf("load: %w", err)))
	assert.Equal(t, "purchase_orders: 98 records written, 2 failed", err.Error())

	var batchErr *PartialBatchFailure
	assert.True(t, stdErrors.As(fmt.Errorf("load: %w", err), &batchErr))
	assert.Len(t, batchErr.Failures, 2)
	assert.Equal(t, 3, batchErr.Failures[0].Index)
}

func TestSchemaMismatch(t *testing.T) {
	err := NewSchemaMismatch("stock_data", "expiry", "JULIAN_DAY")

	assert.True(t, IsSchemaMismatch(err))
	assert.Contains(t, err.Error(), "stock_data.expiry")
	assert.Contains(t, err.Error(), "JULIAN_DAY")
}
