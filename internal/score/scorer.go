// Package score provides the scorer collaborator: a statistical simulation
// that, given a design configuration and a population sample, estimates the
// adoption outcome. Evaluations are stochastic, potentially slow, and safe
// to run concurrently for disjoint configurations.
package score

import (
	"context"
	"time"

	"github.com/calibrant/scenex/internal/space"
)

// PopulationSample describes the simulated respondent cohort. It is
// read-only once built and may be shared across concurrent evaluations
// without synchronization.
type PopulationSample struct {
	// Size is the number of simulated respondents.
	Size int

	// Seed anchors the random streams so identical samples produce
	// identical evaluations.
	Seed int64

	// Sensitivities weight how strongly each configuration dimension
	// moves the cohort. Dimensions without an entry default to weight 1.
	// Negative weights model dimensions that hurt adoption as they grow
	// (cost, risk).
	Sensitivities map[string]float64
}

// NewPopulationSample builds a sample of the given size and seed.
func NewPopulationSample(size int, seed int64, sensitivities map[string]float64) PopulationSample {
	copied := make(map[string]float64, len(sensitivities))
	for dim, w := range sensitivities {
		copied[dim] = w
	}
	return PopulationSample{Size: size, Seed: seed, Sensitivities: copied}
}

// Budget bounds a single evaluation.
type Budget struct {
	// Timeout is the maximum wall-clock duration for one evaluation.
	// Zero means no per-call timeout beyond the caller's context.
	Timeout time.Duration
}

// Scorer evaluates a configuration against a population sample.
type Scorer interface {
	// Evaluate returns the simulated outcome for cfg and the time the
	// evaluation took. Implementations must be safe for concurrent use
	// with disjoint configurations and must honor ctx cancellation.
	Evaluate(ctx context.Context, cfg space.Configuration, sample PopulationSample, budget Budget) (space.Outcome, time.Duration, error)
}
