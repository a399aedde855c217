// Package explore drives whole exploration runs: it owns the run record,
// the sequential outer loop, its termination order, and read-side views of
// the finished tree. One controller instance is the single writer for the
// explorations it runs.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calibrant/scenex/internal/engine"
	"github.com/calibrant/scenex/internal/score"
	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

var (
	// ErrPrecondition marks structural start failures: a missing source
	// configuration or an unscored baseline.
	ErrPrecondition = errors.New("precondition failed")

	// ErrTerminal marks an attempt to run an exploration that has already
	// reached a terminal status.
	ErrTerminal = errors.New("exploration already terminal")
)

// SourceConfig is the starting material for an exploration: the product
// context handed to the proposal generator, the baseline design, and the
// baseline's already-observed outcome. The baseline is never re-evaluated.
type SourceConfig struct {
	Context         string
	Baseline        space.Configuration
	BaselineOutcome *space.Outcome
}

// Controller runs explorations end to end.
type Controller struct {
	store  tree.Store
	engine *engine.Engine
	logger *slog.Logger
}

// New builds a Controller.
func New(store tree.Store, eng *engine.Engine, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: store, engine: eng, logger: logger}
}

// StartExploration validates the source material, persists a new running
// exploration with its root node, and applies the immediate-win check: a
// baseline that already meets the goal finishes the exploration before any
// generator call is made.
func (c *Controller) StartExploration(ctx context.Context, source SourceConfig, goal space.Goal, cfg tree.Config) (*tree.Exploration, error) {
	if source.Baseline.Len() == 0 {
		return nil, fmt.Errorf("%w: no source configuration", ErrPrecondition)
	}
	if source.BaselineOutcome == nil {
		return nil, fmt.Errorf("%w: baseline has not been scored", ErrPrecondition)
	}
	if _, err := space.NewGoal(goal.Dimension, goal.Threshold); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	exp := &tree.Exploration{
		ID:            uuid.NewString(),
		SourceContext: source.Context,
		Goal:          goal,
		Objectives:    space.DefaultObjectives(goal),
		Config:        cfg,
		Status:        tree.ExplorationRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.store.CreateExploration(ctx, exp); err != nil {
		return nil, err
	}

	root, err := tree.NewRootNode(exp.ID, source.Baseline, *source.BaselineOutcome)
	if err != nil {
		return nil, err
	}
	if err := c.store.CreateNode(ctx, root); err != nil {
		return nil, err
	}
	exp.NodeCount = 1
	if v, ok := root.GoalValue(goal.Dimension); ok {
		exp.BestGoalValue = v
	}

	if v, ok := root.GoalValue(goal.Dimension); ok && goal.Achieved(v) {
		if err := c.store.UpdateNodeStatus(ctx, root.ID, tree.NodeWinner); err != nil {
			return nil, err
		}
		exp.Status = tree.ExplorationGoalAchieved
		c.logger.Info("baseline already meets goal", "exploration", exp.ID, "value", v)
	}

	exp.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateExploration(ctx, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// RunToCompletion runs the sequential outer loop until a terminal status is
// reached. Per pass, in order: depth limit, cost limit, one engine round,
// goal achievement, viability, then stats accumulation. A zero-value sample
// is derived from the exploration's own config.
func (c *Controller) RunToCompletion(ctx context.Context, explorationID string, sample score.PopulationSample) (*tree.Exploration, error) {
	exp, err := c.store.GetExploration(ctx, explorationID)
	if err != nil {
		return nil, err
	}
	if exp.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: exploration %s is %s", ErrTerminal, exp.ID, exp.Status)
	}
	if sample.Size == 0 {
		sample = c.defaultSample(exp)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if exp.CurrentDepth >= exp.Config.MaxDepth {
			return c.finish(ctx, exp, tree.ExplorationDepthLimitReached)
		}
		if exp.ProposalCalls >= exp.Config.MaxProposalCalls {
			return c.finish(ctx, exp, tree.ExplorationCostLimitReached)
		}

		frontier, err := c.store.GetFrontierNodes(ctx, exp.ID)
		if err != nil {
			return nil, err
		}
		res, err := c.engine.RunRound(ctx, exp, frontier, sample)
		if err != nil {
			return nil, err
		}

		// Round statistics are recorded even when the round was terminal,
		// so the run record reflects the work actually done.
		exp.NodeCount += res.Created
		exp.ProposalCalls += res.ProposalCalls
		if res.BestGoalValue > exp.BestGoalValue {
			exp.BestGoalValue = res.BestGoalValue
		}

		if res.GoalAchieved {
			return c.finish(ctx, exp, tree.ExplorationGoalAchieved)
		}
		if res.NoViableProposals || res.FrontierSize == 0 {
			return c.finish(ctx, exp, tree.ExplorationNoViablePaths)
		}

		exp.CurrentDepth++
		exp.UpdatedAt = time.Now().UTC()
		if err := c.store.UpdateExploration(ctx, exp); err != nil {
			return nil, err
		}
		c.logger.Debug("round complete",
			"exploration", exp.ID,
			"depth", exp.CurrentDepth,
			"nodes", exp.NodeCount,
			"calls", exp.ProposalCalls,
			"best", exp.BestGoalValue)
	}
}

func (c *Controller) finish(ctx context.Context, exp *tree.Exploration, status tree.ExplorationStatus) (*tree.Exploration, error) {
	exp.Status = status
	exp.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateExploration(ctx, exp); err != nil {
		return nil, err
	}
	c.logger.Info("exploration finished",
		"exploration", exp.ID,
		"status", status,
		"depth", exp.CurrentDepth,
		"nodes", exp.NodeCount,
		"calls", exp.ProposalCalls,
		"best", exp.BestGoalValue)
	return exp, nil
}

func (c *Controller) defaultSample(exp *tree.Exploration) score.PopulationSample {
	seed := exp.Config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return score.NewPopulationSample(exp.Config.SampleSize, seed, nil)
}
