package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Radioafricagroup/glowroot/internal/aggregator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glowroot-test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePersistsOverallAndPerTransactionRows(t *testing.T) {
	s := openTestStore(t)

	overall := &aggregator.TransactionPoint{
		CaptureTime:     1000,
		TransactionType: "",
		TransactionName: "",
		TotalNanos:      900,
		Count:           3,
		MinNanos:        100,
		MaxNanos:        500,
		ErrorCount:      1,
		StoredCount:     1,
	}
	perTransaction := map[string]*aggregator.TransactionPoint{
		"checkout": {
			CaptureTime:     1000,
			TransactionType: "",
			TransactionName: "checkout",
			TotalNanos:      900,
			Count:           3,
			MinNanos:        100,
			MaxNanos:        500,
		},
	}

	require.NoError(t, s.Store("", overall, perTransaction))

	var rows []row
	require.NoError(t, s.db.Select(&rows, "SELECT * FROM transaction_points ORDER BY transaction_name"))
	require.Len(t, rows, 2)

	assert.Equal(t, "", rows[0].TransactionName)
	assert.EqualValues(t, 900, rows[0].TotalNanos)
	assert.Equal(t, "checkout", rows[1].TransactionName)
	assert.EqualValues(t, 3, rows[1].Count)
}

func TestStoreOverwritesOnRepeatedCaptureTime(t *testing.T) {
	s := openTestStore(t)

	first := &aggregator.TransactionPoint{CaptureTime: 2000, Count: 1, TotalNanos: 10}
	require.NoError(t, s.Store("", first, nil))

	second := &aggregator.TransactionPoint{CaptureTime: 2000, Count: 5, TotalNanos: 50}
	require.NoError(t, s.Store("", second, nil))

	var rows []row
	require.NoError(t, s.db.Select(&rows, "SELECT * FROM transaction_points WHERE capture_time = 2000"))
	require.Len(t, rows, 1)
	assert.EqualValues(t, 5, rows[0].Count)
}

func TestToRowLeavesMetricsJSONNilWithoutMergedMetrics(t *testing.T) {
	p := &aggregator.TransactionPoint{CaptureTime: 1, TransactionName: "x"}
	r, err := toRow(p)
	require.NoError(t, err)
	assert.Nil(t, r.MetricsJSON)
}
