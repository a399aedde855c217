// Package tree defines the exploration tree records (nodes and the run-level
// exploration record) and the Store interface for persisting them. The tree
// is arena-style: nodes reference their parent by identifier, never by
// pointer, and are owned exclusively by one exploration.
package tree

import (
	"errors"
	"fmt"
	"time"

	"github.com/calibrant/scenex/internal/space"
)

// Store error sentinels.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NodeStatus is the lifecycle state of a tree node. Transitions are one-way:
// a node starts active and moves to exactly one of the other states, never
// back.
type NodeStatus string

const (
	NodeActive          NodeStatus = "active"
	NodeDominated       NodeStatus = "dominated"
	NodeWinner          NodeStatus = "winner"
	NodeExpansionFailed NodeStatus = "expansion-failed"
)

// CanTransition reports whether a node status change is allowed.
// Only active nodes may change status, and never back to active.
func (s NodeStatus) CanTransition(to NodeStatus) bool {
	if s != NodeActive {
		return false
	}
	switch to {
	case NodeDominated, NodeWinner, NodeExpansionFailed:
		return true
	default:
		return false
	}
}

// AppliedAction is the proposal that produced a node: the human-readable
// change description, its category, and the generator's rationale.
type AppliedAction struct {
	Text      string `json:"text" yaml:"text"`
	Category  string `json:"category" yaml:"category"`
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Node is a vertex in the exploration tree. It is created once (as the
// synthetic root from a baseline, or from a parent and a proposal) and is
// mutated only to attach evaluation results and to advance status.
type Node struct {
	ID            string
	ExplorationID string

	// ParentID is empty only for the root.
	ParentID string

	// Seq is the exploration-scoped creation sequence (0 for root). Node
	// identifiers derive from it, which keeps trees reproducible for
	// identical inputs.
	Seq   int
	Depth int

	// Action is nil only for the root.
	Action *AppliedAction

	Config space.Configuration

	// Outcome is nil until the node has been evaluated.
	Outcome      *space.Outcome
	EvalDuration time.Duration

	Status    NodeStatus
	CreatedAt time.Time
}

// NodeID builds the deterministic identifier for a node of an exploration.
func NodeID(explorationID string, seq int) string {
	return fmt.Sprintf("%s-n%04d", explorationID, seq)
}

// NewRootNode creates the synthetic root for an exploration from an
// already-scored baseline. The root carries the baseline outcome and is
// never re-evaluated.
func NewRootNode(explorationID string, cfg space.Configuration, baseline space.Outcome) (*Node, error) {
	if explorationID == "" {
		return nil, fmt.Errorf("%w: root node requires an exploration ID", space.ErrValidation)
	}
	if cfg.Len() == 0 {
		return nil, fmt.Errorf("%w: root node requires a configuration", space.ErrValidation)
	}
	outcome := baseline
	return &Node{
		ID:            NodeID(explorationID, 0),
		ExplorationID: explorationID,
		Seq:           0,
		Depth:         0,
		Config:        cfg,
		Outcome:       &outcome,
		Status:        NodeActive,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewChildNode creates a node from a parent and an applied action. The
// child sits at parent depth + 1 and starts unevaluated and active.
func NewChildNode(parent *Node, seq int, action AppliedAction, cfg space.Configuration) (*Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: non-root node requires a parent", space.ErrValidation)
	}
	if action.Text == "" {
		return nil, fmt.Errorf("%w: non-root node requires an applied action", space.ErrValidation)
	}
	if seq <= parent.Seq {
		return nil, fmt.Errorf("%w: child sequence %d must follow parent sequence %d", space.ErrValidation, seq, parent.Seq)
	}
	a := action
	return &Node{
		ID:            NodeID(parent.ExplorationID, seq),
		ExplorationID: parent.ExplorationID,
		ParentID:      parent.ID,
		Seq:           seq,
		Depth:         parent.Depth + 1,
		Action:        &a,
		Config:        cfg,
		Status:        NodeActive,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Validate checks the structural node invariants: the root has no parent
// and no action, non-root nodes have both a parent and an action.
func (n *Node) Validate() error {
	if n.Depth == 0 {
		if n.ParentID != "" {
			return fmt.Errorf("%w: root node %s has a parent", space.ErrValidation, n.ID)
		}
		if n.Action != nil {
			return fmt.Errorf("%w: root node %s has an applied action", space.ErrValidation, n.ID)
		}
		return nil
	}
	if n.ParentID == "" {
		return fmt.Errorf("%w: node %s at depth %d has no parent", space.ErrValidation, n.ID, n.Depth)
	}
	if n.Action == nil {
		return fmt.Errorf("%w: node %s at depth %d has no applied action", space.ErrValidation, n.ID, n.Depth)
	}
	return nil
}

// IsRoot reports whether this is the exploration's root node.
func (n *Node) IsRoot() bool {
	return n.Depth == 0
}

// GoalValue resolves the observed value of a named dimension for this node.
// Outcome rates ("success", "failure", "not_attempted") take precedence and
// require an evaluated node; other names resolve against the configuration.
func (n *Node) GoalValue(dim string) (float64, bool) {
	switch dim {
	case "success", "failure", "not_attempted":
		if n.Outcome == nil {
			return 0, false
		}
		return n.Outcome.Rate(dim)
	default:
		return n.Config.Value(dim)
	}
}
