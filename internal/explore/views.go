package explore

import (
	"context"
	"fmt"

	"github.com/calibrant/scenex/internal/tree"
)

// TreeView is a read-only snapshot of an exploration and its full tree.
type TreeView struct {
	Exploration  *tree.Exploration       `json:"exploration"`
	Nodes        []*tree.Node            `json:"nodes"`
	StatusCounts map[tree.NodeStatus]int `json:"status_counts"`
}

// GetTree returns the exploration, every node ordered by creation, and the
// per-status node counts.
func (c *Controller) GetTree(ctx context.Context, id string) (*TreeView, error) {
	exp, err := c.store.GetExploration(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes, err := c.store.GetAllNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := c.store.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TreeView{Exploration: exp, Nodes: nodes, StatusCounts: counts}, nil
}

// PathStep is one node along the winning path: the action that produced it
// (nil for the baseline), the goal-dimension value observed there, and the
// improvement over the previous step.
type PathStep struct {
	NodeID    string              `json:"node_id"`
	Action    *tree.AppliedAction `json:"action,omitempty"`
	GoalValue float64             `json:"goal_value"`
	Delta     float64             `json:"delta"`
}

// Path is the root-to-winner action sequence of a finished exploration.
type Path struct {
	ExplorationID    string     `json:"exploration_id"`
	Steps            []PathStep `json:"steps"`
	TotalImprovement float64    `json:"total_improvement"`
}

// GetWinningPath reconstructs the root-to-winner path by walking parent
// links. It is a pure read: no statuses change. Returns (nil, nil) when the
// exploration has no winner.
func (c *Controller) GetWinningPath(ctx context.Context, id string) (*Path, error) {
	exp, err := c.store.GetExploration(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes, err := c.store.GetAllNodes(ctx, id)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*tree.Node, len(nodes))
	var winner *tree.Node
	for _, n := range nodes {
		byID[n.ID] = n
		if n.Status == tree.NodeWinner {
			winner = n
		}
	}
	if winner == nil {
		return nil, nil
	}

	// Walk to the root, then reverse into creation order.
	var chain []*tree.Node
	for n := winner; ; {
		chain = append(chain, n)
		if n.IsRoot() {
			break
		}
		parent, ok := byID[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: node %s", tree.ErrNotFound, n.ParentID)
		}
		n = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	dim := exp.Objectives.GoalDimension
	path := &Path{ExplorationID: id, Steps: make([]PathStep, 0, len(chain))}
	prev := 0.0
	for i, n := range chain {
		v, _ := n.GoalValue(dim)
		step := PathStep{NodeID: n.ID, Action: n.Action, GoalValue: v}
		if i > 0 {
			step.Delta = v - prev
		}
		path.Steps = append(path.Steps, step)
		prev = v
	}
	if len(path.Steps) > 1 {
		path.TotalImprovement = path.Steps[len(path.Steps)-1].GoalValue - path.Steps[0].GoalValue
	}
	return path, nil
}
