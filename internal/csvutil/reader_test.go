package csvutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/pharmstock/internal/testutil"
)

func TestReadRecords(t *testing.T) {
	env := testutil.NewTestEnv(t)

	env.WriteFileString("stock.csv", `branch,item_code,item_name,stock_pieces,company
HQ,A001,Paracetamol 500mg,120,NILA
HQ,A002,,48.5,NILA
BRANCH2,00123,Ibuprofen 200mg,0,NILA
`)

	records, err := ReadRecords(env.Path("stock.csv"), ReaderOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "HQ", records[0]["branch"])
	assert.Equal(t, int64(120), records[0]["stock_pieces"])
	assert.Equal(t, 48.5, records[1]["stock_pieces"])
	assert.Nil(t, records[1]["item_name"])

	// Document-style codes keep their leading zeros.
	assert.Equal(t, "00123", records[2]["item_code"])
	assert.Equal(t, int64(0), records[2]["stock_pieces"])
}

func TestReadRecordsFieldCountMismatch(t *testing.T) {
	env := testutil.NewTestEnv(t)

	env.WriteFileString("bad.csv", `a,b,c
1,2,3
4,5
6,7,8
`)

	_, err := ReadRecords(env.Path("bad.csv"), ReaderOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3 fields")

	records, err := ReadRecords(env.Path("bad.csv"), ReaderOptions{SkipInvalid: true})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadRecordsEmptyFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("empty.csv", "")

	_, err := ReadRecords(env.Path("empty.csv"), ReaderOptions{})
	assert.Error(t, err)
}

func TestReadRecordsMissingFile(t *testing.T) {
	env := testutil.NewTestEnv(t)

	_, err := ReadRecords(env.Path("nope.csv"), ReaderOptions{})
	assert.Error(t, err)
}

func TestParseCell(t *testing.T) {
	testCases := []struct {
		in   string
		want any
	}{
		{in: "", want: nil},
		{in: "  ", want: nil},
		{in: "42", want: int64(42)},
		{in: "-3", want: int64(-3)},
		{in: "12.5", want: 12.5},
		{in: "0.5", want: 0.5},
		{in: "0", want: int64(0)},
		{in: "007", want: "007"},
		{in: "PO-1001", want: "PO-1001"},
		{in: " NILA HQ ", want: "NILA HQ"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, parseCell(tc.in))
		})
	}
}
