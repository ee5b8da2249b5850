package drift

import (
	"fmt"
	"math"
)

// probabilityFloor replaces zero bucket percentages before the log ratio so
// PSI never divides by zero or takes log(0).
const probabilityFloor = 1e-4

// ComputePSI calculates the Population Stability Index between the reference
// sample the buckets were built from and a comparison sample. It returns the
// total score and the per-bucket contributions. The score is always >= 0 and
// is 0 exactly when both samples occupy the buckets in identical proportions.
func ComputePSI(spec BucketSpec, reference, comparison []float64) (float64, []float64, error) {
	n := spec.NumBuckets()
	if n == 0 {
		return 0, nil, fmt.Errorf("bucket spec for %q has no buckets", spec.Feature)
	}
	if len(reference) == 0 || len(comparison) == 0 {
		return 0, nil, fmt.Errorf("psi for %q: empty sample (reference=%d, comparison=%d)",
			spec.Feature, len(reference), len(comparison))
	}

	refPct := bucketShares(spec, reference)
	cmpPct := bucketShares(spec, comparison)

	contributions := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		r, c := refPct[i], cmpPct[i]
		if r == 0 {
			r = probabilityFloor
		}
		if c == 0 {
			c = probabilityFloor
		}
		contributions[i] = (c - r) * math.Log(c/r)
		total += contributions[i]
	}

	return total, contributions, nil
}

// bucketShares returns the fraction of the sample falling into each bucket.
func bucketShares(spec BucketSpec, sample []float64) []float64 {
	shares := make([]float64, spec.NumBuckets())
	for _, v := range sample {
		shares[spec.Index(v)]++
	}
	for i := range shares {
		shares[i] /= float64(len(sample))
	}
	return shares
}
