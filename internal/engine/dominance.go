package engine

import (
	"sort"

	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

// Dominates reports whether node a Pareto-dominates node b over the fixed
// three-objective set: the goal dimension is maximized, the cost and risk
// dimensions are minimized. Dominance requires a to be at least as good as b
// on every objective and strictly better on at least one.
//
// Both nodes must have recorded outcomes; a node without an outcome never
// dominates and is never dominated. An objective value that cannot be
// resolved on either side blocks dominance rather than being guessed.
func Dominates(a, b *tree.Node, obj space.Objectives) bool {
	if a == nil || b == nil || a.Outcome == nil || b.Outcome == nil {
		return false
	}
	if a.ID == b.ID {
		return false
	}

	axes := []struct {
		dim      string
		maximize bool
	}{
		{obj.GoalDimension, true},
		{obj.CostDimension, false},
		{obj.RiskDimension, false},
	}

	strict := false
	for _, ax := range axes {
		av, aok := a.GoalValue(ax.dim)
		bv, bok := b.GoalValue(ax.dim)
		if !aok || !bok {
			return false
		}
		if ax.maximize {
			if av < bv {
				return false
			}
			if av > bv {
				strict = true
			}
		} else {
			if av > bv {
				return false
			}
			if av < bv {
				strict = true
			}
		}
	}
	return strict
}

// paretoFilter runs one dominance pass over the given active nodes and
// returns the nodes eliminated by it. Nodes are considered in the given
// order; once a node is marked dominated within the pass it is excluded
// from all further comparisons, as challenger and as candidate.
func paretoFilter(nodes []*tree.Node, obj space.Objectives) []*tree.Node {
	dominated := make(map[string]bool, len(nodes))
	var out []*tree.Node
	for _, cand := range nodes {
		if dominated[cand.ID] {
			continue
		}
		for _, chal := range nodes {
			if chal.ID == cand.ID || dominated[chal.ID] {
				continue
			}
			if Dominates(chal, cand, obj) {
				dominated[cand.ID] = true
				out = append(out, cand)
				break
			}
		}
	}
	return out
}

// beamCut ranks the surviving active nodes by goal-dimension value,
// descending, and returns the nodes falling outside the top width slots.
// Ties break toward the earlier-created node so the cut is reproducible.
func beamCut(nodes []*tree.Node, goalDim string, width int) []*tree.Node {
	if width < 1 || len(nodes) <= width {
		return nil
	}
	ranked := make([]*tree.Node, len(nodes))
	copy(ranked, nodes)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, _ := ranked[i].GoalValue(goalDim)
		vj, _ := ranked[j].GoalValue(goalDim)
		if vi != vj {
			return vi > vj
		}
		return ranked[i].Seq < ranked[j].Seq
	})
	return ranked[width:]
}
