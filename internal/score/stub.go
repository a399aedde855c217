package score

import (
	"context"
	"sync"
	"time"

	"github.com/calibrant/scenex/internal/space"
)

// StubScorer implements Scorer with a deterministic function of the
// configuration, for tests that need exact outcome control. It tracks
// evaluated configurations for verification.
type StubScorer struct {
	mu sync.Mutex

	fn  func(cfg space.Configuration) (space.Outcome, error)
	err error

	// Evaluations records every evaluated configuration in call order.
	Evaluations []space.Configuration
}

// NewStubScorer creates a stub whose outcome is computed by fn.
func NewStubScorer(fn func(cfg space.Configuration) (space.Outcome, error)) *StubScorer {
	return &StubScorer{fn: fn}
}

// WithError configures an error returned by every evaluation.
func (s *StubScorer) WithError(err error) *StubScorer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Evaluate applies the stub function and records the call.
func (s *StubScorer) Evaluate(ctx context.Context, cfg space.Configuration, sample PopulationSample, budget Budget) (space.Outcome, time.Duration, error) {
	s.mu.Lock()
	s.Evaluations = append(s.Evaluations, cfg)
	err := s.err
	fn := s.fn
	s.mu.Unlock()

	if err != nil {
		return space.Outcome{}, 0, err
	}
	outcome, err := fn(cfg)
	return outcome, time.Millisecond, err
}

// EvaluationCount returns the number of evaluations performed.
func (s *StubScorer) EvaluationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Evaluations)
}
