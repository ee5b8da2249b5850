package sink

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/internal/drift"
)

func TestMemoryRetainsMostRecent(t *testing.T) {
	m := NewMemory(3)
	for i := 1; i <= 5; i++ {
		res := testResult(fmt.Sprintf("f%d", i), 0.1, drift.PossibleDrift)
		require.NoError(t, m.Consume(res))
	}

	recent := m.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "f3", recent[0].Feature)
	assert.Equal(t, "f5", recent[2].Feature)
}

func TestMemoryRecentLimit(t *testing.T) {
	m := NewMemory(10)
	for i := 1; i <= 4; i++ {
		require.NoError(t, m.Consume(testResult(fmt.Sprintf("f%d", i), 0.1, drift.NoDrift)))
	}

	// Limit returns the tail, oldest first.
	recent := m.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "f3", recent[0].Feature)
	assert.Equal(t, "f4", recent[1].Feature)

	assert.Len(t, m.Recent(100), 4)
	assert.Empty(t, NewMemory(5).Recent(10))
}
