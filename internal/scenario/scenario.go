package scenario

import (
	"github.com/calibrant/scenex/internal/explore"
	"github.com/calibrant/scenex/internal/propose"
	"github.com/calibrant/scenex/internal/score"
	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

// Scenario defines a complete exploration experiment.
type Scenario struct {
	Name string

	// SourceContext is the free-text product description handed to the
	// generator. Defaults to the scenario name.
	SourceContext string

	// Baseline is the starting configuration.
	Baseline map[string]float64

	// BaselineOutcome is the baseline's observed outcome. The zero value
	// selects success 0.25 / failure 0.15 / not-attempted 0.60.
	BaselineOutcome *space.Outcome

	Goal   space.Goal
	Config tree.Config

	// Propose, when non-nil, scripts the generator per parent node. A nil
	// function yields an always-empty generator.
	Propose func(node *tree.Node, maxProposals int) ([]propose.Proposal, error)

	// Scorer overrides the evaluation backend. Nil selects the real
	// Monte-Carlo scorer.
	Scorer score.Scorer

	// Sample overrides the population sample. The zero value derives the
	// sample from the scenario config.
	Sample score.PopulationSample
}

// Result captures a finished run and its full tree.
type Result struct {
	Exploration  *tree.Exploration
	Nodes        []*tree.Node
	StatusCounts map[tree.NodeStatus]int
	Path         *explore.Path
	Calls        int
}

// NodeByID returns the node with the given ID, or nil.
func (r Result) NodeByID(id string) *tree.Node {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Root returns the run's root node, or nil.
func (r Result) Root() *tree.Node {
	for _, n := range r.Nodes {
		if n.IsRoot() {
			return n
		}
	}
	return nil
}
