package drift

import "encoding/json"

// Status is the drift-severity tier derived from the PSI magnitude.
type Status int

const (
	NoDrift Status = iota
	PossibleDrift
	LikelyDrift
)

// String returns the human-readable tier name used in logs and the CSV log.
func (s Status) String() string {
	switch s {
	case PossibleDrift:
		return "Possible Drift"
	case LikelyDrift:
		return "Likely Drift"
	default:
		return "No Drift"
	}
}

// Label returns the machine-friendly tier name used in metrics and JSON.
func (s Status) Label() string {
	switch s {
	case PossibleDrift:
		return "possible_drift"
	case LikelyDrift:
		return "likely_drift"
	default:
		return "no_drift"
	}
}

// MarshalJSON encodes the status as its label.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Label())
}

// Classify maps a PSI score onto a severity tier. The possible-drift band is
// inclusive on both ends: psi < noDriftMax is NoDrift, noDriftMax <= psi <=
// possibleMax is PossibleDrift, psi > possibleMax is LikelyDrift.
func Classify(psi, noDriftMax, possibleMax float64) Status {
	switch {
	case psi < noDriftMax:
		return NoDrift
	case psi <= possibleMax:
		return PossibleDrift
	default:
		return LikelyDrift
	}
}
