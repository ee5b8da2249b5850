package drift

import "time"

// Record is one observation of the tracked feature vector. Records are
// treated as immutable once ingested; the window stores them by value and
// never mutates the feature map.
type Record struct {
	Features  map[string]float64 `json:"features"`
	Timestamp time.Time          `json:"timestamp"`
}
