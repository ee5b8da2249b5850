package drift

import (
	"fmt"
	"math"
	"sort"
)

// BucketSpec holds the bucket edges used to discretize one feature. The first
// edge is -Inf and the last is +Inf, so every value, including production
// values outside the reference range, falls into exactly one bucket.
type BucketSpec struct {
	Feature string    `json:"feature"`
	Edges   []float64 `json:"edges"`
}

// NumBuckets returns the number of half-open buckets described by the spec.
func (b BucketSpec) NumBuckets() int {
	if len(b.Edges) < 2 {
		return 0
	}
	return len(b.Edges) - 1
}

// Index returns the bucket index for a value. Bucket i covers
// [Edges[i], Edges[i+1]); lookup is a binary search over the sorted edges.
func (b BucketSpec) Index(v float64) int {
	idx := sort.Search(len(b.Edges), func(i int) bool { return b.Edges[i] > v }) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > b.NumBuckets()-1 {
		idx = b.NumBuckets() - 1
	}
	return idx
}

// BuildBuckets computes quantile bucket edges for one feature from its
// reference sample. Interior edges sit at the i/numBuckets quantiles, using
// linear interpolation between order statistics at rank p*(n-1), so the same
// sample and bucket count always produce identical edges. A reference with
// fewer distinct values than buckets collapses duplicate edges and yields
// fewer buckets instead of failing.
func BuildBuckets(feature string, reference []float64, numBuckets int) (BucketSpec, error) {
	if numBuckets < 2 {
		return BucketSpec{}, fmt.Errorf("%w: num_buckets must be >= 2, got %d", ErrInvalidConfig, numBuckets)
	}
	if len(reference) == 0 {
		return BucketSpec{}, fmt.Errorf("%w: empty reference sample for feature %q", ErrInvalidConfig, feature)
	}

	sorted := make([]float64, len(reference))
	copy(sorted, reference)
	sort.Float64s(sorted)

	edges := make([]float64, 0, numBuckets+1)
	edges = append(edges, math.Inf(-1))
	for i := 1; i < numBuckets; i++ {
		q := quantile(sorted, float64(i)/float64(numBuckets))
		if q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	edges = append(edges, math.Inf(1))

	return BucketSpec{Feature: feature, Edges: edges}, nil
}

// quantile interpolates linearly between the order statistics of a sorted
// sample at rank p*(n-1).
func quantile(sorted []float64, p float64) float64 {
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
