package maintenance

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/pharmstock/internal/datastore"
)

// fakeStore answers queries from a substring-keyed script and records
// every mutation.
type fakeStore struct {
	queryResults map[string][]datastore.Row
	queryErr     map[string]error
	executes     []string
	execs        []string
	executeN     map[string]int64
	execErr      map[string]error
	version      string
	tables       map[string]bool
}

func (f *fakeStore) lookup(m map[string][]datastore.Row, query string) ([]datastore.Row, bool) {
	for key, rows := range m {
		if strings.Contains(query, key) {
			return rows, true
		}
	}
	return nil, false
}

func (f *fakeStore) Query(_ context.Context, query string, _ ...any) ([]datastore.Row, error) {
	for key, err := range f.queryErr {
		if strings.Contains(query, key) {
			return nil, err
		}
	}
	if rows, ok := f.lookup(f.queryResults, query); ok {
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

func (f *fakeStore) Execute(_ context.Context, query string, _ ...any) (int64, error) {
	f.executes = append(f.executes, query)
	for key, n := range f.executeN {
		if strings.Contains(query, key) {
			return n, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) Exec(_ context.Context, query string, _ ...any) (int64, error) {
	for key, err := range f.execErr {
		if strings.Contains(query, key) {
			return 0, err
		}
	}
	f.execs = append(f.execs, query)
	return 0, nil
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }
func (f *fakeStore) Close()                       {}

func (f *fakeStore) ServerVersion(_ context.Context) (string, error) {
	return f.version, nil
}

func (f *fakeStore) TableExists(_ context.Context, table string) (bool, error) {
	return f.tables[table], nil
}

func countRow(n int64) []datastore.Row {
	return []datastore.Row{{"n": n}}
}

func TestCheckDuplicates(t *testing.T) {
	store := &fakeStore{
		queryResults: map[string][]datastore.Row{
			"COUNT(DISTINCT": countRow(950),
			"COUNT(*)":       countRow(1000),
		},
	}

	report, err := CheckDuplicates(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), report.Total)
	assert.Equal(t, int64(950), report.Unique)
	assert.Equal(t, int64(50), report.Duplicates)
	assert.Empty(t, store.executes)
}

func TestCleanupDuplicates(t *testing.T) {
	store := &fakeStore{
		queryResults: map[string][]datastore.Row{
			"COUNT(DISTINCT": countRow(950),
			"COUNT(*)":       countRow(1000),
		},
		executeN: map[string]int64{"DELETE FROM current_stock": 50},
	}

	deleted, err := CleanupDuplicates(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, int64(50), deleted)

	require.Len(t, store.executes, 1)
	assert.Contains(t, store.executes[0], "UPPER(TRIM(a.branch)) = UPPER(TRIM(b.branch))")
	assert.Contains(t, store.executes[0], "a.id < b.id")

	require.Len(t, store.execs, 1)
	assert.Equal(t, "VACUUM ANALYZE current_stock", store.execs[0])
}

func TestCleanupDuplicatesNothingToDo(t *testing.T) {
	store := &fakeStore{
		queryResults: map[string][]datastore.Row{
			"COUNT(DISTINCT": countRow(1000),
			"COUNT(*)":       countRow(1000),
		},
	}

	deleted, err := CleanupDuplicates(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
	assert.Empty(t, store.executes)
	assert.Empty(t, store.execs)
}

func TestVacuumFullCurrentStock(t *testing.T) {
	store := &fakeStore{
		queryResults: map[string][]datastore.Row{
			"pg_size_pretty": {{
				"total_size": "120 MB",
				"table_size": "90 MB",
				"index_size": "30 MB",
			}},
			"COUNT(*)": countRow(50000),
		},
	}

	result, err := VacuumFullCurrentStock(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), result.Rows)
	assert.Equal(t, "120 MB", result.Before.TotalSize)
	assert.Equal(t, "90 MB", result.After.TableSize)

	require.Len(t, store.execs, 1)
	assert.Equal(t, "VACUUM (FULL, ANALYZE) current_stock", store.execs[0])
}

func TestCheckRetentionCountsOnly(t *testing.T) {
	store := &fakeStore{
		queryResults: map[string][]datastore.Row{
			"document_date <": countRow(12),
		},
	}

	report, err := CheckRetention(context.Background(), store, 30)
	require.NoError(t, err)
	require.Len(t, report.Tables, 4)

	for _, tr := range report.Tables {
		assert.NoError(t, tr.Err)
		assert.Equal(t, int64(12), tr.Expired)
		assert.Equal(t, int64(0), tr.Deleted)
	}
	assert.Empty(t, store.executes)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), report.Cutoff, time.Minute)
}

func TestCleanupRetentionDeletes(t *testing.T) {
	store := &fakeStore{
		queryResults: map[string][]datastore.Row{
			"document_date <": countRow(7),
		},
		executeN: map[string]int64{"DELETE FROM": 7},
	}

	report, err := CleanupRetention(context.Background(), store, 30)
	require.NoError(t, err)
	require.Len(t, report.Tables, 4)

	for _, tr := range report.Tables {
		assert.Equal(t, int64(7), tr.Deleted)
	}
	require.Len(t, store.executes, 4)
	assert.Contains(t, store.executes[0], `"purchase_orders"`)
	assert.Contains(t, store.executes[3], `"grns"`)
}

func TestCleanupRetentionTableFailureIsIsolated(t *testing.T) {
	store := &fakeStore{
		queryResults: map[string][]datastore.Row{
			"document_date <": countRow(3),
		},
		queryErr: map[string]error{
			`"branch_orders"`: fmt.Errorf("relation does not exist"),
		},
		executeN: map[string]int64{"DELETE FROM": 3},
	}

	report, err := CleanupRetention(context.Background(), store, 30)
	require.NoError(t, err)
	require.Len(t, report.Tables, 4)

	assert.NoError(t, report.Tables[0].Err)
	assert.Error(t, report.Tables[1].Err)
	assert.NoError(t, report.Tables[2].Err)
	require.Len(t, store.executes, 3)
}

func TestRetentionRejectsNonPositiveDays(t *testing.T) {
	_, err := CheckRetention(context.Background(), &fakeStore{}, 0)
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	store := &fakeStore{
		version: "PostgreSQL 16.3 on x86_64-pc-linux-gnu",
		tables:  map[string]bool{"items": true, "current_stock": true},
		queryResults: map[string][]datastore.Row{
			"COUNT(*)": countRow(42),
		},
	}

	report, err := Status(context.Background(), store)
	require.NoError(t, err)
	assert.Contains(t, report.ServerVersion, "PostgreSQL 16.3")
	require.Len(t, report.Tables, 8)

	byName := map[string]TableStatus{}
	for _, ts := range report.Tables {
		byName[ts.Table] = ts
	}
	assert.True(t, byName["items"].Present)
	assert.Equal(t, int64(42), byName["items"].Rows)
	assert.False(t, byName["grns"].Present)
}
