// Package engine implements one bounded expansion round of a scenario
// exploration: frontier selection, concurrent proposal generation, child
// instantiation, concurrent evaluation, goal detection, Pareto filtering,
// and the beam cut. The engine mutates the tree through the store only;
// run-level bookkeeping stays with the controller.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/calibrant/scenex/internal/logging"
	"github.com/calibrant/scenex/internal/propose"
	"github.com/calibrant/scenex/internal/score"
	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

// DefaultEvalTimeout bounds a single scorer evaluation.
const DefaultEvalTimeout = 30 * time.Second

// RoundResult summarizes one expansion round.
type RoundResult struct {
	// Expanded is the number of frontier nodes selected for expansion.
	Expanded int

	// Created is the number of child nodes instantiated this round.
	Created int

	// Dominated counts nodes eliminated this round, by Pareto filtering
	// and by the beam cut combined.
	Dominated int

	// ProposalCalls is the number of external generator calls made. Every
	// selected node costs one call regardless of its yield.
	ProposalCalls int

	// BestGoalValue is the highest goal-dimension value observed across
	// the whole exploration after this round.
	BestGoalValue float64

	// FrontierSize is the number of active nodes remaining after filtering.
	FrontierSize int

	// GoalAchieved reports whether a child reached the goal this round.
	GoalAchieved bool

	// NoViableProposals reports that every selected node yielded zero
	// usable proposals.
	NoViableProposals bool
}

// Engine runs expansion rounds against an exploration tree. All
// collaborators are injected; the engine holds no global state.
type Engine struct {
	store  tree.Store
	client propose.Client
	scorer score.Scorer
	logger *slog.Logger
	audit  *logging.AuditLogger

	evalTimeout time.Duration
}

// New builds an Engine. The audit logger may be nil.
func New(store tree.Store, client propose.Client, scorer score.Scorer, logger *slog.Logger, audit *logging.AuditLogger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:       store,
		client:      client,
		scorer:      scorer,
		logger:      logger,
		audit:       audit,
		evalTimeout: DefaultEvalTimeout,
	}
}

// SetEvalTimeout overrides the per-evaluation timeout. Zero disables it.
func (e *Engine) SetEvalTimeout(d time.Duration) {
	e.evalTimeout = d
}

// proposalBatch is the sanitized yield of one generator call.
type proposalBatch struct {
	parent    *tree.Node
	proposals []propose.Proposal
}

// evaluated is the settled result of one successful child evaluation.
type evaluated struct {
	outcome space.Outcome
	elapsed time.Duration
}

// RunRound executes one expansion round for the exploration. Collaborator
// failures degrade inside the round; only store errors are returned.
func (e *Engine) RunRound(ctx context.Context, exp *tree.Exploration, frontier []*tree.Node, sample score.PopulationSample) (RoundResult, error) {
	var res RoundResult
	goalDim := exp.Objectives.GoalDimension

	// Step 1: the frontier arrives in stable store order; the beam is its
	// leading slice.
	selected := frontier
	if len(selected) > exp.Config.BeamWidth {
		selected = selected[:exp.Config.BeamWidth]
	}
	res.Expanded = len(selected)
	res.BestGoalValue = exp.BestGoalValue

	// Step 2: one generator call per selected node, fanned out
	// concurrently. Failures and rejected candidates degrade to an empty
	// batch for that node.
	batches := e.proposeAll(ctx, exp, selected)
	res.ProposalCalls = len(selected)

	// Step 3: instantiate children in deterministic order. Sequence
	// numbers continue from the exploration's node count.
	nextSeq := exp.NodeCount
	var children []*tree.Node
	for _, batch := range batches {
		for _, p := range batch.proposals {
			cfg := batch.parent.Config.Apply(p.Deltas)
			child, err := tree.NewChildNode(batch.parent, nextSeq, tree.AppliedAction{
				Text:      p.Action,
				Category:  p.Category,
				Rationale: p.Rationale,
			}, cfg)
			if err != nil {
				e.logger.Warn("rejected child node", "parent", batch.parent.ID, "error", err)
				continue
			}
			if err := e.store.CreateNode(ctx, child); err != nil {
				return res, err
			}
			nextSeq++
			children = append(children, child)
		}
	}
	res.Created = len(children)
	if res.Expanded > 0 && res.Created == 0 {
		res.NoViableProposals = true
	}

	// Step 4: evaluate every child concurrently and join all before
	// persisting, so the store sees results in creation order. A failed
	// evaluation marks only that child expansion-failed.
	results, failures := e.evaluateAll(ctx, children, sample)
	for i, child := range children {
		if failures[i] != nil {
			e.logger.Warn("evaluation failed", "node", child.ID, "error", failures[i])
			if err := e.store.UpdateNodeStatus(ctx, child.ID, tree.NodeExpansionFailed); err != nil {
				return res, err
			}
			child.Status = tree.NodeExpansionFailed
			continue
		}
		if err := e.store.UpdateNodeOutcome(ctx, child.ID, results[i].outcome, results[i].elapsed); err != nil {
			return res, err
		}
		child.Outcome = &results[i].outcome
		child.EvalDuration = results[i].elapsed
		if v, ok := child.GoalValue(goalDim); ok && v > res.BestGoalValue {
			res.BestGoalValue = v
		}
	}

	// Step 5: goal check over the evaluated children. The best achieving
	// child becomes the winner; filtering still runs so the tree is left
	// consistent.
	if winner := bestAchiever(children, exp.Goal, goalDim); winner != nil {
		if err := e.store.UpdateNodeStatus(ctx, winner.ID, tree.NodeWinner); err != nil {
			return res, err
		}
		res.GoalAchieved = true
		e.logger.Info("goal achieved", "node", winner.ID, "dimension", goalDim)
	}

	// Step 6: Pareto filter across every active node in the exploration.
	active, err := e.store.GetFrontierNodes(ctx, exp.ID)
	if err != nil {
		return res, err
	}
	eliminated := paretoFilter(active, exp.Objectives)
	cut := make(map[string]bool, len(eliminated))
	for _, n := range eliminated {
		if err := e.store.UpdateNodeStatus(ctx, n.ID, tree.NodeDominated); err != nil {
			return res, err
		}
		cut[n.ID] = true
	}
	res.Dominated = len(eliminated)

	// Step 7: beam cut over the survivors.
	survivors := make([]*tree.Node, 0, len(active))
	for _, n := range active {
		if !cut[n.ID] {
			survivors = append(survivors, n)
		}
	}
	trimmed := beamCut(survivors, goalDim, exp.Config.BeamWidth)
	for _, n := range trimmed {
		if err := e.store.UpdateNodeStatus(ctx, n.ID, tree.NodeDominated); err != nil {
			return res, err
		}
	}
	res.Dominated += len(trimmed)
	res.FrontierSize = len(survivors) - len(trimmed)

	e.audit.Log(map[string]any{
		"event":          "round_complete",
		"exploration_id": exp.ID,
		"expanded":       res.Expanded,
		"created":        res.Created,
		"dominated":      res.Dominated,
		"proposal_calls": res.ProposalCalls,
		"best_goal":      res.BestGoalValue,
		"frontier":       res.FrontierSize,
		"goal_achieved":  res.GoalAchieved,
	})
	return res, nil
}

// proposeAll fans one generator call out per selected node and collects the
// sanitized batches in selection order.
func (e *Engine) proposeAll(ctx context.Context, exp *tree.Exploration, selected []*tree.Node) []proposalBatch {
	batches := make([]proposalBatch, len(selected))
	var wg sync.WaitGroup
	for i, node := range selected {
		batches[i].parent = node
		wg.Add(1)
		go func(i int, node *tree.Node) {
			defer wg.Done()
			raw, err := e.client.Propose(ctx, node, exp.SourceContext, propose.MaxProposals)
			if err != nil {
				e.logger.Warn("proposal call failed", "node", node.ID, "error", err)
				return
			}
			batches[i].proposals = propose.Sanitize(raw, exp.Config.Categories, node.Config, propose.MaxProposals)
		}(i, node)
	}
	wg.Wait()
	return batches
}

// evaluateAll runs one scorer evaluation per child concurrently and waits
// for all of them to settle. Results and failures are indexed by child.
func (e *Engine) evaluateAll(ctx context.Context, children []*tree.Node, sample score.PopulationSample) ([]evaluated, []error) {
	results := make([]evaluated, len(children))
	failures := make([]error, len(children))
	budget := score.Budget{Timeout: e.evalTimeout}

	var wg sync.WaitGroup
	for i, child := range children {
		wg.Add(1)
		go func(i int, child *tree.Node) {
			defer wg.Done()
			out, elapsed, err := e.scorer.Evaluate(ctx, child.Config, sample, budget)
			if err != nil {
				failures[i] = err
				return
			}
			results[i] = evaluated{outcome: out, elapsed: elapsed}
		}(i, child)
	}
	wg.Wait()
	return results, failures
}

// bestAchiever returns the evaluated child with the highest goal value among
// those meeting the goal threshold, or nil when none does. Ties break toward
// the earlier-created child.
func bestAchiever(children []*tree.Node, goal space.Goal, goalDim string) *tree.Node {
	var best *tree.Node
	var bestVal float64
	for _, child := range children {
		if child.Outcome == nil || child.Status != tree.NodeActive {
			continue
		}
		v, ok := child.GoalValue(goalDim)
		if !ok || !goal.Achieved(v) {
			continue
		}
		if best == nil || v > bestVal {
			best = child
			bestVal = v
		}
	}
	return best
}
