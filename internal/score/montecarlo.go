package score

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/calibrant/scenex/internal/space"
)

// cancelCheckInterval is how many respondents are simulated between
// context checks.
const cancelCheckInterval = 1024

// MonteCarloScorer estimates adoption outcomes by simulating each
// respondent's attempt and adoption decisions. The random stream for an
// evaluation derives from the sample seed and the configuration
// fingerprint, so results are reproducible regardless of how many
// evaluations run concurrently or in what order they finish.
type MonteCarloScorer struct{}

// NewMonteCarloScorer creates a scorer.
func NewMonteCarloScorer() *MonteCarloScorer {
	return &MonteCarloScorer{}
}

// Evaluate simulates sample.Size respondents against cfg.
func (s *MonteCarloScorer) Evaluate(ctx context.Context, cfg space.Configuration, sample PopulationSample, budget Budget) (space.Outcome, time.Duration, error) {
	start := time.Now()

	if sample.Size < 1 {
		return space.Outcome{}, 0, fmt.Errorf("%w: sample size must be >= 1, got %d", space.ErrValidation, sample.Size)
	}
	if budget.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget.Timeout)
		defer cancel()
	}

	attraction, friction := s.cohortResponse(cfg, sample)
	rng := rand.New(rand.NewSource(sample.Seed ^ int64(cfg.Fingerprint())))

	var succeeded, failed, notAttempted int
	for i := 0; i < sample.Size; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return space.Outcome{}, time.Since(start), fmt.Errorf("evaluation canceled: %w", err)
			}
		}

		// A respondent first decides whether the design is attractive
		// enough to try, then whether friction stops them completing.
		if rng.Float64() >= attraction {
			notAttempted++
			continue
		}
		if rng.Float64() < friction {
			failed++
			continue
		}
		succeeded++
	}

	total := float64(sample.Size)
	outcome, err := space.NewOutcome(
		float64(succeeded)/total,
		float64(failed)/total,
		float64(notAttempted)/total,
	)
	if err != nil {
		return space.Outcome{}, time.Since(start), fmt.Errorf("assembling outcome: %w", err)
	}
	return outcome, time.Since(start), nil
}

// cohortResponse collapses the configuration into the cohort's attempt
// probability and completion friction. Positive-sensitivity dimensions
// raise attraction; negative-sensitivity dimensions raise friction.
func (s *MonteCarloScorer) cohortResponse(cfg space.Configuration, sample PopulationSample) (attraction, friction float64) {
	var pull, pullWeight, drag, dragWeight float64
	for _, dim := range cfg.Dimensions() {
		v, _ := cfg.Value(dim)
		w, ok := sample.Sensitivities[dim]
		if !ok {
			w = 1.0
		}
		if w >= 0 {
			pull += v * w
			pullWeight += w
		} else {
			drag += v * -w
			dragWeight += -w
		}
	}

	attraction = 0.5
	if pullWeight > 0 {
		attraction = pull / pullWeight
	}
	friction = 0.0
	if dragWeight > 0 {
		friction = drag / dragWeight
	}
	return attraction, friction
}
