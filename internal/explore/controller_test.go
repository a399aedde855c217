package explore

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/calibrant/scenex/internal/engine"
	"github.com/calibrant/scenex/internal/logging"
	"github.com/calibrant/scenex/internal/propose"
	"github.com/calibrant/scenex/internal/score"
	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

// appealScorer maps the "appeal" dimension onto the success rate, rounded
// to two decimals so repeated float deltas land exactly on thresholds.
func appealScorer() *score.StubScorer {
	return score.NewStubScorer(func(cfg space.Configuration) (space.Outcome, error) {
		appeal, _ := cfg.Value("appeal")
		appeal = math.Round(appeal*100) / 100
		return space.NewOutcome(appeal, 0.1, 0.9-appeal)
	})
}

func testSource(t *testing.T, baselineSuccess float64) SourceConfig {
	t.Helper()
	cfg, err := space.NewConfiguration(map[string]float64{
		"appeal": baselineSuccess, "cost": 0.30, "risk": 0.30,
	})
	if err != nil {
		t.Fatalf("NewConfiguration: %v", err)
	}
	outcome, err := space.NewOutcome(baselineSuccess, 0.1, 0.9-baselineSuccess)
	if err != nil {
		t.Fatalf("NewOutcome: %v", err)
	}
	return SourceConfig{
		Context:         "subscription onboarding flow",
		Baseline:        cfg,
		BaselineOutcome: &outcome,
	}
}

func testController(t *testing.T, client propose.Client, scorer score.Scorer) (*Controller, tree.Store) {
	t.Helper()
	store := tree.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	logger := logging.NewLogger("error", io.Discard)
	eng := engine.New(store, client, scorer, logger, nil)
	return New(store, eng, logger), store
}

func testRunConfig() tree.Config {
	return tree.Config{
		BeamWidth:        3,
		MaxDepth:         5,
		MaxProposalCalls: 25,
		SampleSize:       100,
		RandomSeed:       42,
		Categories:       []string{"pricing", "onboarding"},
	}
}

func TestStartExploration_Preconditions(t *testing.T) {
	ctx := context.Background()
	goal := space.Goal{Dimension: "success", Threshold: 0.40}

	tests := []struct {
		name   string
		source func(t *testing.T) SourceConfig
	}{
		{
			name: "empty baseline configuration",
			source: func(t *testing.T) SourceConfig {
				s := testSource(t, 0.25)
				s.Baseline = space.Configuration{}
				return s
			},
		},
		{
			name: "unscored baseline",
			source: func(t *testing.T) SourceConfig {
				s := testSource(t, 0.25)
				s.BaselineOutcome = nil
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, _ := testController(t, propose.NewMockClient(), appealScorer())
			_, err := ctrl.StartExploration(ctx, tt.source(t), goal, testRunConfig())
			if !errors.Is(err, ErrPrecondition) {
				t.Errorf("err = %v, want ErrPrecondition", err)
			}
		})
	}
}

func TestStartExploration_ImmediateWin(t *testing.T) {
	ctx := context.Background()
	client := propose.NewMockClient()
	ctrl, store := testController(t, client, appealScorer())

	// Baseline success 0.50 already beats threshold 0.40.
	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.50),
		space.Goal{Dimension: "success", Threshold: 0.40}, testRunConfig())
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}

	if exp.Status != tree.ExplorationGoalAchieved {
		t.Errorf("status = %s, want %s", exp.Status, tree.ExplorationGoalAchieved)
	}
	if exp.NodeCount != 1 {
		t.Errorf("NodeCount = %d, want 1", exp.NodeCount)
	}
	if client.CallCount() != 0 {
		t.Errorf("generator calls = %d, want 0", client.CallCount())
	}

	root, err := store.GetNode(ctx, tree.NodeID(exp.ID, 0))
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if root.Status != tree.NodeWinner {
		t.Errorf("root status = %s, want %s", root.Status, tree.NodeWinner)
	}
}

func TestRunToCompletion_StepwiseGoal(t *testing.T) {
	ctx := context.Background()

	// Every generator call yields one proposal that raises appeal (and so
	// success) by 0.05. From baseline 0.25 the goal 0.40 needs 3 rounds.
	client := propose.NewMockClient().WithProposeFunc(func(node *tree.Node, max int) ([]propose.Proposal, error) {
		return []propose.Proposal{{
			Action:   "raise appeal",
			Category: "pricing",
			Deltas:   map[string]float64{"appeal": 0.05},
		}}, nil
	})
	ctrl, _ := testController(t, client, appealScorer())

	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.25),
		space.Goal{Dimension: "success", Threshold: 0.40}, testRunConfig())
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}

	final, err := ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{})
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}

	if final.Status != tree.ExplorationGoalAchieved {
		t.Fatalf("status = %s, want %s", final.Status, tree.ExplorationGoalAchieved)
	}
	if final.ProposalCalls != 3 {
		t.Errorf("ProposalCalls = %d, want 3", final.ProposalCalls)
	}
	if !closeTo(final.BestGoalValue, 0.40) {
		t.Errorf("BestGoalValue = %.4f, want 0.40", final.BestGoalValue)
	}

	path, err := ctrl.GetWinningPath(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetWinningPath: %v", err)
	}
	if path == nil {
		t.Fatal("expected a winning path")
	}
	if len(path.Steps) != 4 {
		t.Fatalf("path has %d steps, want 4 (root + 3 actions)", len(path.Steps))
	}
	if !closeTo(path.TotalImprovement, 0.15) {
		t.Errorf("TotalImprovement = %.4f, want 0.15", path.TotalImprovement)
	}
	if path.Steps[0].Action != nil {
		t.Error("root step should carry no action")
	}
	for i, step := range path.Steps[1:] {
		if step.Action == nil {
			t.Errorf("step %d has no action", i+1)
		}
		if !closeTo(step.Delta, 0.05) {
			t.Errorf("step %d delta = %.4f, want 0.05", i+1, step.Delta)
		}
	}
}

func TestRunToCompletion_NoViablePaths(t *testing.T) {
	ctx := context.Background()

	// The generator never yields a usable proposal.
	client := propose.NewMockClient()
	ctrl, _ := testController(t, client, appealScorer())

	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.25),
		space.Goal{Dimension: "success", Threshold: 0.40}, testRunConfig())
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}

	final, err := ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{})
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
	if final.Status != tree.ExplorationNoViablePaths {
		t.Errorf("status = %s, want %s", final.Status, tree.ExplorationNoViablePaths)
	}
	if final.ProposalCalls != 1 {
		t.Errorf("ProposalCalls = %d, want 1", final.ProposalCalls)
	}
}

func TestRunToCompletion_DepthLimit(t *testing.T) {
	ctx := context.Background()
	client := propose.NewMockClient()
	ctrl, _ := testController(t, client, appealScorer())

	cfg := testRunConfig()
	cfg.MaxDepth = 0
	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.25),
		space.Goal{Dimension: "success", Threshold: 0.40}, cfg)
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}

	final, err := ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{})
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
	if final.Status != tree.ExplorationDepthLimitReached {
		t.Errorf("status = %s, want %s", final.Status, tree.ExplorationDepthLimitReached)
	}
	if client.CallCount() != 0 {
		t.Errorf("generator calls = %d, want 0 (limit checked before any round)", client.CallCount())
	}
}

func TestRunToCompletion_CostLimit(t *testing.T) {
	ctx := context.Background()
	client := propose.NewMockClient().WithProposeFunc(func(node *tree.Node, max int) ([]propose.Proposal, error) {
		return []propose.Proposal{{
			Action:   "raise appeal",
			Category: "pricing",
			Deltas:   map[string]float64{"appeal": 0.01},
		}}, nil
	})
	ctrl, _ := testController(t, client, appealScorer())

	cfg := testRunConfig()
	cfg.MaxProposalCalls = 1
	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.25),
		space.Goal{Dimension: "success", Threshold: 0.90}, cfg)
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}

	final, err := ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{})
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
	if final.Status != tree.ExplorationCostLimitReached {
		t.Errorf("status = %s, want %s", final.Status, tree.ExplorationCostLimitReached)
	}
	if final.ProposalCalls != 1 {
		t.Errorf("ProposalCalls = %d, want 1", final.ProposalCalls)
	}
}

func TestRunToCompletion_TerminalRejected(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := testController(t, propose.NewMockClient(), appealScorer())

	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.50),
		space.Goal{Dimension: "success", Threshold: 0.40}, testRunConfig())
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}
	if !exp.Status.IsTerminal() {
		t.Fatalf("expected an immediate win, got %s", exp.Status)
	}

	_, err = ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{})
	if !errors.Is(err, ErrTerminal) {
		t.Errorf("err = %v, want ErrTerminal", err)
	}
}

func TestGetTree(t *testing.T) {
	ctx := context.Background()
	client := propose.NewMockClient().WithProposeFunc(func(node *tree.Node, max int) ([]propose.Proposal, error) {
		return []propose.Proposal{{
			Action:   "raise appeal",
			Category: "pricing",
			Deltas:   map[string]float64{"appeal": 0.05},
		}}, nil
	})
	ctrl, _ := testController(t, client, appealScorer())

	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.25),
		space.Goal{Dimension: "success", Threshold: 0.40}, testRunConfig())
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}
	if _, err := ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{}); err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}

	view, err := ctrl.GetTree(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if view.Exploration.ID != exp.ID {
		t.Errorf("view exploration = %s, want %s", view.Exploration.ID, exp.ID)
	}
	if len(view.Nodes) != view.Exploration.NodeCount {
		t.Errorf("view has %d nodes, exploration records %d", len(view.Nodes), view.Exploration.NodeCount)
	}
	if view.StatusCounts[tree.NodeWinner] != 1 {
		t.Errorf("winner count = %d, want 1", view.StatusCounts[tree.NodeWinner])
	}

	total := 0
	for _, n := range view.StatusCounts {
		total += n
	}
	if total != len(view.Nodes) {
		t.Errorf("status counts sum to %d, want %d", total, len(view.Nodes))
	}
}

func TestGetWinningPath_NoWinner(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := testController(t, propose.NewMockClient(), appealScorer())

	exp, err := ctrl.StartExploration(ctx, testSource(t, 0.25),
		space.Goal{Dimension: "success", Threshold: 0.40}, testRunConfig())
	if err != nil {
		t.Fatalf("StartExploration: %v", err)
	}
	if _, err := ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{}); err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}

	path, err := ctrl.GetWinningPath(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetWinningPath: %v", err)
	}
	if path != nil {
		t.Errorf("expected nil path without a winner, got %+v", path)
	}
}
