package drift

import (
	"time"

	"github.com/google/uuid"
)

// OverallFeature names the aggregate result emitted alongside the per-feature
// results of each evaluation cycle. Its score is the mean feature PSI.
const OverallFeature = "overall"

// Result is the outcome of evaluating one feature (or the overall aggregate)
// in one cycle. Results are immutable after creation.
type Result struct {
	ID            string    `json:"id"`
	Feature       string    `json:"feature"`
	PSI           float64   `json:"psi"`
	Status        Status    `json:"status"`
	Contributions []float64 `json:"contributions,omitempty"`
	SampleSize    int       `json:"sample_size"`
	ReferenceSize int       `json:"reference_size,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func newResult(feature string, psi float64, status Status, contributions []float64, sampleSize, refSize int, at time.Time) Result {
	return Result{
		ID:            uuid.NewString(),
		Feature:       feature,
		PSI:           psi,
		Status:        status,
		Contributions: contributions,
		SampleSize:    sampleSize,
		ReferenceSize: refSize,
		Timestamp:     at,
	}
}
