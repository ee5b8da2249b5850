package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/internal/drift"
)

func testResult(feature string, psi float64, status drift.Status) drift.Result {
	return drift.Result{
		ID:         "test",
		Feature:    feature,
		PSI:        psi,
		Status:     status,
		SampleSize: 100,
		Timestamp:  time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVLogWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "drift.csv")

	log, err := NewCSVLog(path)
	require.NoError(t, err)

	require.NoError(t, log.Consume(testResult("amount", 0.3421, drift.LikelyDrift)))
	require.NoError(t, log.Consume(testResult("score", 0.05, drift.NoDrift)))
	require.NoError(t, log.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"timestamp", "feature", "psi_score", "drift_status"}, rows[0])
	assert.Equal(t, []string{"2025-03-14 09:26:53", "amount", "0.3421", "Likely Drift"}, rows[1])
	assert.Equal(t, []string{"2025-03-14 09:26:53", "score", "0.0500", "No Drift"}, rows[2])
}

func TestCSVLogAppendsWithoutDuplicateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.csv")

	log, err := NewCSVLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Consume(testResult("f", 0.1, drift.PossibleDrift)))
	require.NoError(t, log.Close())

	// Reopen: existing content is preserved, header is not rewritten.
	log, err = NewCSVLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Consume(testResult("f", 0.2, drift.PossibleDrift)))
	require.NoError(t, log.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "0.1000", rows[1][2])
	assert.Equal(t, "0.2000", rows[2][2])
}
