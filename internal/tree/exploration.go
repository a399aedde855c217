package tree

import (
	"fmt"
	"time"

	"github.com/calibrant/scenex/internal/space"
)

// ExplorationStatus is the lifecycle state of an exploration run.
// Running is the only non-terminal state; once a terminal status is set
// no further iterations run and the status never changes again.
type ExplorationStatus string

const (
	ExplorationRunning           ExplorationStatus = "running"
	ExplorationGoalAchieved      ExplorationStatus = "goal-achieved"
	ExplorationDepthLimitReached ExplorationStatus = "depth-limit-reached"
	ExplorationCostLimitReached  ExplorationStatus = "cost-limit-reached"
	ExplorationNoViablePaths     ExplorationStatus = "no-viable-paths"
)

// IsTerminal reports whether the status ends the exploration.
func (s ExplorationStatus) IsTerminal() bool {
	return s != ExplorationRunning
}

// Config bounds a single exploration run.
type Config struct {
	// BeamWidth is the maximum number of frontier nodes kept active after
	// filtering, and the number of nodes expanded per round.
	BeamWidth int `json:"beam_width" yaml:"beam_width"`

	// MaxDepth is the tree depth at which the exploration stops.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxProposalCalls bounds cumulative external proposal-generator calls.
	MaxProposalCalls int `json:"max_proposal_calls" yaml:"max_proposal_calls"`

	// SampleSize is the Monte-Carlo population sample size per evaluation.
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// RandomSeed seeds the scorer's random streams. Zero selects a
	// time-based seed; any other value makes runs reproducible.
	RandomSeed int64 `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`

	// Categories is the set of valid proposal categories. Proposals with
	// a category outside this set are dropped at the boundary.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// DefaultConfig returns the standard exploration bounds.
func DefaultConfig() Config {
	return Config{
		BeamWidth:        3,
		MaxDepth:         5,
		MaxProposalCalls: 25,
		SampleSize:       1000,
		Categories:       []string{"pricing", "onboarding", "feature", "messaging", "friction"},
	}
}

// Validate rejects configs that cannot drive a round.
func (c Config) Validate() error {
	if c.BeamWidth < 1 {
		return fmt.Errorf("%w: beam width must be >= 1, got %d", space.ErrValidation, c.BeamWidth)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must be >= 0, got %d", space.ErrValidation, c.MaxDepth)
	}
	if c.MaxProposalCalls < 0 {
		return fmt.Errorf("%w: max proposal calls must be >= 0, got %d", space.ErrValidation, c.MaxProposalCalls)
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("%w: sample size must be >= 1, got %d", space.ErrValidation, c.SampleSize)
	}
	return nil
}

// Exploration is the run record for one scenario exploration. It is created
// once at start and mutated once per iteration by the controller until a
// terminal status is set.
type Exploration struct {
	ID string

	// SourceContext is a free-text description of the product and baseline
	// design, handed to the proposal generator with every call.
	SourceContext string

	Goal       space.Goal
	Objectives space.Objectives
	Config     Config

	CurrentDepth  int
	NodeCount     int
	ProposalCalls int

	// BestGoalValue is the highest observed goal-dimension value across
	// the whole tree.
	BestGoalValue float64

	Status    ExplorationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransition reports whether an exploration status change is allowed:
// only running explorations change status, and only to a terminal one.
func (s ExplorationStatus) CanTransition(to ExplorationStatus) bool {
	return s == ExplorationRunning && to.IsTerminal()
}
