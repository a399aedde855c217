package score

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/calibrant/scenex/internal/space"
)

func testSample(size int, seed int64) PopulationSample {
	return NewPopulationSample(size, seed, map[string]float64{
		"appeal": 1.0,
		"cost":   -0.5,
		"risk":   -0.5,
	})
}

func TestMonteCarloScorer_RatesSumToOne(t *testing.T) {
	cfg, err := space.NewConfiguration(map[string]float64{"appeal": 0.6, "cost": 0.3, "risk": 0.2})
	if err != nil {
		t.Fatalf("NewConfiguration() error = %v", err)
	}

	scorer := NewMonteCarloScorer()
	outcome, elapsed, err := scorer.Evaluate(context.Background(), cfg, testSample(1000, 42), Budget{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	sum := outcome.Success + outcome.Failure + outcome.NotAttempted
	if math.Abs(sum-1.0) > space.RateSumTolerance {
		t.Errorf("rates sum = %v, want 1.0", sum)
	}
	if elapsed <= 0 {
		t.Errorf("elapsed = %v, want > 0", elapsed)
	}
}

func TestMonteCarloScorer_Deterministic(t *testing.T) {
	cfg, _ := space.NewConfiguration(map[string]float64{"appeal": 0.6, "cost": 0.3, "risk": 0.2})
	scorer := NewMonteCarloScorer()
	sample := testSample(500, 7)

	a, _, err := scorer.Evaluate(context.Background(), cfg, sample, Budget{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	b, _, err := scorer.Evaluate(context.Background(), cfg, sample, Budget{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if a != b {
		t.Errorf("identical inputs produced different outcomes: %+v vs %+v", a, b)
	}
}

func TestMonteCarloScorer_DifferentSeedsDiffer(t *testing.T) {
	cfg, _ := space.NewConfiguration(map[string]float64{"appeal": 0.6, "cost": 0.3, "risk": 0.2})
	scorer := NewMonteCarloScorer()

	a, _, _ := scorer.Evaluate(context.Background(), cfg, testSample(1000, 1), Budget{})
	b, _, _ := scorer.Evaluate(context.Background(), cfg, testSample(1000, 2), Budget{})

	if a == b {
		t.Errorf("different seeds produced identical outcomes: %+v", a)
	}
}

func TestMonteCarloScorer_HigherAppealRaisesSuccess(t *testing.T) {
	low, _ := space.NewConfiguration(map[string]float64{"appeal": 0.2, "cost": 0.3, "risk": 0.2})
	high, _ := space.NewConfiguration(map[string]float64{"appeal": 0.9, "cost": 0.3, "risk": 0.2})
	scorer := NewMonteCarloScorer()
	sample := testSample(5000, 42)

	lowOut, _, err := scorer.Evaluate(context.Background(), low, sample, Budget{})
	if err != nil {
		t.Fatalf("Evaluate(low) error = %v", err)
	}
	highOut, _, err := scorer.Evaluate(context.Background(), high, sample, Budget{})
	if err != nil {
		t.Fatalf("Evaluate(high) error = %v", err)
	}

	if highOut.Success <= lowOut.Success {
		t.Errorf("success: high appeal %v <= low appeal %v", highOut.Success, lowOut.Success)
	}
}

func TestMonteCarloScorer_CanceledContext(t *testing.T) {
	cfg, _ := space.NewConfiguration(map[string]float64{"appeal": 0.5})
	scorer := NewMonteCarloScorer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := scorer.Evaluate(ctx, cfg, testSample(100000, 42), Budget{}); err == nil {
		t.Error("Evaluate() with canceled context: error = nil, want error")
	}
}

func TestMonteCarloScorer_ConcurrentEvaluationsAreIndependent(t *testing.T) {
	scorer := NewMonteCarloScorer()
	sample := testSample(1000, 42)

	configs := make([]space.Configuration, 8)
	for i := range configs {
		cfg, _ := space.NewConfiguration(map[string]float64{
			"appeal": 0.1 * float64(i+1),
			"cost":   0.3,
			"risk":   0.2,
		})
		configs[i] = cfg
	}

	// Evaluate sequentially for reference, then concurrently.
	reference := make([]space.Outcome, len(configs))
	for i, cfg := range configs {
		out, _, err := scorer.Evaluate(context.Background(), cfg, sample, Budget{})
		if err != nil {
			t.Fatalf("Evaluate(%d) error = %v", i, err)
		}
		reference[i] = out
	}

	concurrent := make([]space.Outcome, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg space.Configuration) {
			defer wg.Done()
			out, _, err := scorer.Evaluate(context.Background(), cfg, sample, Budget{})
			if err != nil {
				t.Errorf("concurrent Evaluate(%d) error = %v", i, err)
				return
			}
			concurrent[i] = out
		}(i, cfg)
	}
	wg.Wait()

	for i := range configs {
		if reference[i] != concurrent[i] {
			t.Errorf("config %d: concurrent outcome %+v != sequential %+v", i, concurrent[i], reference[i])
		}
	}
}
