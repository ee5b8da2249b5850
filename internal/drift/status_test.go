package drift

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		psi  float64
		want Status
	}{
		{0, NoDrift},
		{0.05, NoDrift},
		{0.0999, NoDrift},
		{0.1, PossibleDrift}, // boundary included
		{0.2, PossibleDrift},
		{0.25, PossibleDrift}, // boundary included
		{0.2501, LikelyDrift},
		{1.5, LikelyDrift},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.psi, 0.1, 0.25), "psi=%v", tt.psi)
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	assert.Equal(t, NoDrift, Classify(0.15, 0.2, 0.5))
	assert.Equal(t, PossibleDrift, Classify(0.3, 0.2, 0.5))
	assert.Equal(t, LikelyDrift, Classify(0.6, 0.2, 0.5))
}

func TestStatusNames(t *testing.T) {
	assert.Equal(t, "No Drift", NoDrift.String())
	assert.Equal(t, "Possible Drift", PossibleDrift.String())
	assert.Equal(t, "Likely Drift", LikelyDrift.String())

	assert.Equal(t, "no_drift", NoDrift.Label())
	assert.Equal(t, "possible_drift", PossibleDrift.Label())
	assert.Equal(t, "likely_drift", LikelyDrift.Label())
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(LikelyDrift)
	require.NoError(t, err)
	assert.Equal(t, `"likely_drift"`, string(b))
}
