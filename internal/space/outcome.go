package space

import (
	"errors"
	"fmt"
	"math"
)

// ErrValidation is the sentinel for construction-time validation failures.
// Values that fail validation must never reach the tree store.
var ErrValidation = errors.New("validation failed")

// RateSumTolerance is the allowed deviation of success+failure+not-attempted
// from 1.0 when constructing an Outcome.
const RateSumTolerance = 0.01

// Outcome is the simulated population response to a Configuration: the
// fraction of the population that adopted (success), tried and abandoned
// (failure), or never attempted. The three rates sum to 1.0 within
// RateSumTolerance.
type Outcome struct {
	Success      float64 `json:"success" yaml:"success"`
	Failure      float64 `json:"failure" yaml:"failure"`
	NotAttempted float64 `json:"not_attempted" yaml:"not_attempted"`
}

// NewOutcome constructs an Outcome, rejecting negative rates and rate sets
// that do not sum to 1.0 within RateSumTolerance.
func NewOutcome(success, failure, notAttempted float64) (Outcome, error) {
	if success < 0 || failure < 0 || notAttempted < 0 {
		return Outcome{}, fmt.Errorf("%w: outcome rates must be non-negative (got %.4f/%.4f/%.4f)",
			ErrValidation, success, failure, notAttempted)
	}
	sum := success + failure + notAttempted
	if math.Abs(sum-1.0) > RateSumTolerance {
		return Outcome{}, fmt.Errorf("%w: outcome rates sum to %.4f, expected 1.0 ±%.2f",
			ErrValidation, sum, RateSumTolerance)
	}
	return Outcome{Success: success, Failure: failure, NotAttempted: notAttempted}, nil
}

// Rate returns the named outcome rate and whether the name is a known rate.
// Recognized names: "success", "failure", "not_attempted".
func (o Outcome) Rate(name string) (float64, bool) {
	switch name {
	case "success":
		return o.Success, true
	case "failure":
		return o.Failure, true
	case "not_attempted":
		return o.NotAttempted, true
	default:
		return 0, false
	}
}
