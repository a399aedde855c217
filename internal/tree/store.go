package tree

import (
	"context"
	"time"

	"github.com/calibrant/scenex/internal/space"
)

// Store persists explorations and their nodes. Implementations are pure
// data access: no search logic lives here. The engine assumes single-writer
// access per exploration.
type Store interface {
	// CreateExploration persists a new exploration record.
	CreateExploration(ctx context.Context, exp *Exploration) error

	// UpdateExploration overwrites the mutable run-level fields (depth,
	// counts, best value, status). Terminal statuses are final: updating
	// a terminal exploration's status to a different one fails with
	// ErrInvalidTransition.
	UpdateExploration(ctx context.Context, exp *Exploration) error

	// GetExploration retrieves an exploration by ID.
	GetExploration(ctx context.Context, id string) (*Exploration, error)

	// CreateNode persists a new node. The node must pass Validate and its
	// parent (for non-root nodes) must already exist in the same
	// exploration.
	CreateNode(ctx context.Context, node *Node) error

	// UpdateNodeOutcome attaches an evaluation result to a node.
	UpdateNodeOutcome(ctx context.Context, nodeID string, outcome space.Outcome, elapsed time.Duration) error

	// UpdateNodeStatus advances a node's status. Transitions are one-way;
	// disallowed transitions fail with ErrInvalidTransition.
	UpdateNodeStatus(ctx context.Context, nodeID string, status NodeStatus) error

	// GetNode retrieves a node by ID.
	GetNode(ctx context.Context, id string) (*Node, error)

	// GetFrontierNodes returns the exploration's active nodes in stable
	// order: ascending depth, then creation sequence. The order must be
	// identical across calls for the same stored state.
	GetFrontierNodes(ctx context.Context, explorationID string) ([]*Node, error)

	// GetAllNodes returns every node of an exploration ordered by creation
	// sequence.
	GetAllNodes(ctx context.Context, explorationID string) ([]*Node, error)

	// CountByStatus returns node counts per status for an exploration.
	CountByStatus(ctx context.Context, explorationID string) (map[NodeStatus]int, error)

	// Close releases store resources.
	Close() error
}
