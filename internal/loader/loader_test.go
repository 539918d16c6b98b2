package loader

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/pharmstock/internal/datastore"
	"github.com/lepinkainen/pharmstock/internal/errors"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB implements datastore.DB, recording every statement. errOn maps
// a substring of the SQL or an argument value to an error.
type fakeDB struct {
	execs     []execCall
	tx        *fakeTx
	errOnAt   map[int]error
	txErrOnAt map[int]error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	call := len(f.execs)
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if err, ok := f.errOnAt[call]; ok {
		return 0, err
	}
	return 1, nil
}

func (f *fakeDB) Begin(_ context.Context) (datastore.Tx, error) {
	f.tx = &fakeTx{errOnAt: f.txErrOnAt}
	return f.tx, nil
}

type fakeTx struct {
	execs      []execCall
	committed  bool
	rolledBack bool
	errOnAt    map[int]error
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	call := len(f.execs)
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if err, ok := f.errOnAt[call]; ok {
		return 0, err
	}
	return 1, nil
}

func (f *fakeTx) Commit(_ context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(_ context.Context) error {
	f.rolledBack = true
	return nil
}

func stockRecord(branch, itemCode string, pieces float64) Record {
	return Record{
		"branch":       branch,
		"item_code":    itemCode,
		"item_name":    "Test Item",
		"stock_pieces": pieces,
		"company":      "NILA",
	}
}

func TestBuildInsertSkip(t *testing.T) {
	spec, err := SpecFor("purchase_orders")
	require.NoError(t, err)

	sql := buildInsertSkip(spec, []string{"company", "branch", "document_number", "item_code"})
	assert.Equal(t,
		`INSERT INTO "purchase_orders" ("company", "branch", "document_number", "item_code") `+
			`VALUES ($1, $2, $3, $4) `+
			`ON CONFLICT ("company", "branch", "document_number", "item_code") DO NOTHING`,
		sql)
}

func TestBuildUpsert(t *testing.T) {
	spec, err := SpecFor("current_stock")
	require.NoError(t, err)

	sql := buildUpsert(spec, []string{"branch", "item_code", "company", "stock_pieces"})
	assert.Contains(t, sql, `ON CONFLICT ("branch", "item_code", "company") DO UPDATE SET`)
	assert.Contains(t, sql, `"stock_pieces" = EXCLUDED."stock_pieces"`)
	assert.NotContains(t, sql, `"branch" = EXCLUDED`)
}

func TestBuildUpsertAllKeyColumns(t *testing.T) {
	spec := TableSpec{
		Name:       "t",
		Columns:    []string{"a", "b"},
		NaturalKey: []string{"a", "b"},
	}

	sql := buildUpsert(spec, []string{"a", "b"})
	assert.True(t, strings.HasSuffix(sql, `ON CONFLICT ("a", "b") DO NOTHING`))
}

func TestRecordNormalize(t *testing.T) {
	rec := Record{
		"branch":       "  NILA HQ  ",
		"item_name":    "",
		"stock_pieces": mathNaN(),
		"pack_size":    12,
	}

	got := rec.Normalize()
	assert.Equal(t, "  NILA HQ  ", got["branch"])
	assert.Nil(t, got["item_name"])
	assert.Nil(t, got["stock_pieces"])
	assert.Equal(t, 12, got["pack_size"])
}

func mathNaN() float64 {
	var zero float64
	return zero / zero
}

func TestSpecForUnknownTable(t *testing.T) {
	_, err := SpecFor("users; DROP TABLE items")
	assert.Error(t, err)
}

func TestLoadReplaceAll(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	records := []Record{
		stockRecord("HQ", "A001", 10),
		stockRecord("HQ", "A002", 20),
	}

	result, err := l.Load(context.Background(), mustSpec(t, "current_stock"), records, ReplaceAll)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Written)
	assert.Empty(t, result.Failures)
	assert.NoError(t, result.Err("current_stock"))

	require.NotNil(t, db.tx)
	assert.True(t, db.tx.committed)
	require.Len(t, db.tx.execs, 3)
	assert.Equal(t, `DELETE FROM "current_stock"`, db.tx.execs[0].sql)
	assert.Contains(t, db.tx.execs[1].sql, `INSERT INTO "current_stock"`)
	assert.NotContains(t, db.tx.execs[1].sql, "ON CONFLICT")
}

func TestLoadReplaceAllRollsBackOnError(t *testing.T) {
	// Call index 2 is the second insert, after the DELETE at index 0.
	db := &fakeDB{txErrOnAt: map[int]error{2: fmt.Errorf("connection reset")}}
	l := New(db)

	records := []Record{
		stockRecord("HQ", "A001", 10),
		stockRecord("HQ", "A002", 20),
	}

	_, err := l.Load(context.Background(), mustSpec(t, "current_stock"), records, ReplaceAll)
	require.Error(t, err)
	assert.True(t, errors.IsUpdateError(err))
	assert.True(t, db.tx.rolledBack)
	assert.False(t, db.tx.committed)
}

func TestLoadInsertSkipDuplicates(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	records := []Record{
		stockRecord("HQ", "A001", 10),
		stockRecord("HQ", "A002", 20),
	}

	result, err := l.Load(context.Background(), mustSpec(t, "current_stock"), records, InsertSkipDuplicates)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Written)

	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].sql, `ON CONFLICT ("branch", "item_code", "company") DO NOTHING`)
	assert.Nil(t, db.tx)
}

func TestLoadUpsertRequiresNaturalKey(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	_, err := l.Load(context.Background(), mustSpec(t, "stock_data"), []Record{{"item_code": "A001"}}, UpsertByKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "natural key")
}

func TestLoadRecordFailureContinues(t *testing.T) {
	db := &fakeDB{errOnAt: map[int]error{1: fmt.Errorf("value too long for column")}}
	l := New(db)

	records := []Record{
		stockRecord("HQ", "A001", 10),
		stockRecord("HQ", "A002", 20),
		stockRecord("HQ", "A003", 30),
	}

	result, err := l.Load(context.Background(), mustSpec(t, "current_stock"), records, InsertSkipDuplicates)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Written)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Index)

	batchErr := result.Err("current_stock")
	require.Error(t, batchErr)
	assert.True(t, errors.IsPartialBatchFailure(batchErr))
}

func TestLoadValidationFailures(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	records := []Record{
		stockRecord("HQ", "A001", 10),
		{"branch": "HQ", "nonsense": 1},
		{"branch": "HQ", "item_code": "A003"},
	}

	result, err := l.Load(context.Background(), mustSpec(t, "current_stock"), records, InsertSkipDuplicates)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Written)
	require.Len(t, result.Failures, 2)
	assert.Contains(t, result.Failures[0].Reason, "unknown column")
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.Equal(t, 2, result.Failures[1].Index)
}

func TestLoadAllRecordsInvalid(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	records := []Record{
		{"nonsense": 1},
		{"garbage": 2},
	}

	result, err := l.Load(context.Background(), mustSpec(t, "current_stock"), records, InsertSkipDuplicates)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Written)
	assert.Len(t, result.Failures, 2)
	assert.Empty(t, db.execs)
}

func TestLoadEmptyBatch(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	result, err := l.Load(context.Background(), mustSpec(t, "current_stock"), nil, ReplaceAll)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Written)
	assert.Empty(t, db.execs)
}

func TestInsertCurrentStockDefaultsToReplaceAll(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	_, err := l.InsertCurrentStock(context.Background(), []Record{stockRecord("HQ", "A001", 5)}, "")
	require.NoError(t, err)
	require.NotNil(t, db.tx)
	assert.Equal(t, `DELETE FROM "current_stock"`, db.tx.execs[0].sql)
}

func TestInsertPurchaseOrdersSkipsDuplicates(t *testing.T) {
	db := &fakeDB{}
	l := New(db)

	records := []Record{{
		"company":         "NILA",
		"branch":          "HQ",
		"document_number": "PO-1001",
		"document_date":   "2026-08-01",
		"item_code":       "A001",
		"quantity":        24.0,
	}}

	result, err := l.InsertPurchaseOrders(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Written)
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, `"purchase_orders"`)
	assert.Contains(t, db.execs[0].sql, "DO NOTHING")
}

func mustSpec(t *testing.T, table string) TableSpec {
	t.Helper()
	spec, err := SpecFor(table)
	require.NoError(t, err)
	return spec
}
