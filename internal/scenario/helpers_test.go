package scenario

import (
	"math"

	"github.com/calibrant/scenex/internal/propose"
	"github.com/calibrant/scenex/internal/score"
	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

// appealStub scores success as the "appeal" dimension rounded to two
// decimals, so scripted deltas land exactly on goal thresholds.
func appealStub() *score.StubScorer {
	return score.NewStubScorer(func(cfg space.Configuration) (space.Outcome, error) {
		appeal, _ := cfg.Value("appeal")
		appeal = math.Round(appeal*100) / 100
		return space.NewOutcome(appeal, 0.1, 0.9-appeal)
	})
}

func defaultBaseline() map[string]float64 {
	return map[string]float64{"appeal": 0.25, "cost": 0.30, "risk": 0.30}
}

func defaultGoal() space.Goal {
	return space.Goal{Dimension: "success", Threshold: 0.40}
}

func defaultRunConfig() tree.Config {
	return tree.Config{
		BeamWidth:        3,
		MaxDepth:         5,
		MaxProposalCalls: 25,
		SampleSize:       200,
		RandomSeed:       42,
		Categories:       []string{"pricing", "onboarding", "feature"},
	}
}

// raiseAppeal scripts a generator that always proposes a single +delta
// appeal change.
func raiseAppeal(delta float64) func(node *tree.Node, maxProposals int) ([]propose.Proposal, error) {
	return func(node *tree.Node, maxProposals int) ([]propose.Proposal, error) {
		return []propose.Proposal{{
			Action:   "raise appeal",
			Category: "pricing",
			Deltas:   map[string]float64{"appeal": delta},
		}}, nil
	}
}
