package scenario

import (
	"math"
	"testing"

	"github.com/calibrant/scenex/internal/tree"
)

// AssertStatus asserts the exploration finished with the given status.
func AssertStatus(t *testing.T, result Result, want tree.ExplorationStatus) {
	t.Helper()
	if got := result.Exploration.Status; got != want {
		t.Errorf("AssertStatus: exploration finished %s, want %s", got, want)
	}
}

// AssertNodeCount asserts the tree holds exactly want nodes and that the
// exploration record agrees.
func AssertNodeCount(t *testing.T, result Result, want int) {
	t.Helper()
	if got := len(result.Nodes); got != want {
		t.Errorf("AssertNodeCount: tree holds %d nodes, want %d", got, want)
	}
	if got := result.Exploration.NodeCount; got != want {
		t.Errorf("AssertNodeCount: exploration records %d nodes, want %d", got, want)
	}
}

// AssertCalls asserts the number of generator calls made and that the
// exploration's budget accounting agrees.
func AssertCalls(t *testing.T, result Result, want int) {
	t.Helper()
	if got := result.Calls; got != want {
		t.Errorf("AssertCalls: generator saw %d calls, want %d", got, want)
	}
	if got := result.Exploration.ProposalCalls; got != want {
		t.Errorf("AssertCalls: exploration records %d calls, want %d", got, want)
	}
}

// AssertPathLength asserts the winning path has exactly want steps. A want
// of 0 asserts there is no winning path at all.
func AssertPathLength(t *testing.T, result Result, want int) {
	t.Helper()
	if want == 0 {
		if result.Path != nil {
			t.Errorf("AssertPathLength: expected no winning path, got %d steps", len(result.Path.Steps))
		}
		return
	}
	if result.Path == nil {
		t.Errorf("AssertPathLength: expected a %d-step winning path, got none", want)
		return
	}
	if got := len(result.Path.Steps); got != want {
		t.Errorf("AssertPathLength: path has %d steps, want %d", got, want)
	}
}

// AssertImprovement asserts the winning path's total improvement within tol.
func AssertImprovement(t *testing.T, result Result, want, tol float64) {
	t.Helper()
	if result.Path == nil {
		t.Error("AssertImprovement: no winning path")
		return
	}
	if got := result.Path.TotalImprovement; math.Abs(got-want) > tol {
		t.Errorf("AssertImprovement: total improvement %.4f, want %.4f ±%.4f", got, want, tol)
	}
}

// AssertStatusCount asserts the number of nodes holding a given status.
func AssertStatusCount(t *testing.T, result Result, status tree.NodeStatus, want int) {
	t.Helper()
	if got := result.StatusCounts[status]; got != want {
		t.Errorf("AssertStatusCount: %d %s nodes, want %d", got, status, want)
	}
}

// AssertOneWayStatuses asserts every non-active node is in exactly one of
// the terminal node states and that every evaluated node's outcome rates
// sum to 1 within tolerance.
func AssertOneWayStatuses(t *testing.T, result Result) {
	t.Helper()
	for _, n := range result.Nodes {
		switch n.Status {
		case tree.NodeActive, tree.NodeDominated, tree.NodeWinner, tree.NodeExpansionFailed:
		default:
			t.Errorf("AssertOneWayStatuses: node %s in unknown status %q", n.ID, n.Status)
		}
		if n.Outcome != nil {
			sum := n.Outcome.Success + n.Outcome.Failure + n.Outcome.NotAttempted
			if math.Abs(sum-1.0) > 0.01 {
				t.Errorf("AssertOneWayStatuses: node %s outcome rates sum to %.4f", n.ID, sum)
			}
		}
	}
}

// AssertIdenticalTrees asserts two runs produced structurally identical
// trees: same sequences, parent links, depths, statuses, configurations,
// and outcomes. Node identifiers themselves differ per run because they
// embed the exploration ID, so parent links compare by parent sequence.
func AssertIdenticalTrees(t *testing.T, a, b Result) {
	t.Helper()
	if len(a.Nodes) != len(b.Nodes) {
		t.Fatalf("AssertIdenticalTrees: %d vs %d nodes", len(a.Nodes), len(b.Nodes))
	}
	parentSeq := func(res Result, n *tree.Node) int {
		if n.ParentID == "" {
			return -1
		}
		parent := res.NodeByID(n.ParentID)
		if parent == nil {
			t.Fatalf("AssertIdenticalTrees: missing parent %s", n.ParentID)
		}
		return parent.Seq
	}
	for i, na := range a.Nodes {
		nb := b.Nodes[i]
		if na.Seq != nb.Seq || na.Depth != nb.Depth || parentSeq(a, na) != parentSeq(b, nb) {
			t.Errorf("AssertIdenticalTrees: node %d structure differs: seq %d depth %d parent %d vs seq %d depth %d parent %d",
				i, na.Seq, na.Depth, parentSeq(a, na), nb.Seq, nb.Depth, parentSeq(b, nb))
		}
		if na.Status != nb.Status {
			t.Errorf("AssertIdenticalTrees: node %d status %s vs %s", i, na.Status, nb.Status)
		}
		if (na.Outcome == nil) != (nb.Outcome == nil) {
			t.Errorf("AssertIdenticalTrees: node %d outcome presence differs", i)
			continue
		}
		if na.Outcome != nil && *na.Outcome != *nb.Outcome {
			t.Errorf("AssertIdenticalTrees: node %d outcome %+v vs %+v", i, *na.Outcome, *nb.Outcome)
		}
		if !na.Config.Equal(nb.Config) {
			t.Errorf("AssertIdenticalTrees: node %d configuration differs", i)
		}
	}
}
