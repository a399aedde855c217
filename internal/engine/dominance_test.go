package engine

import (
	"testing"

	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

func testObjectives() space.Objectives {
	return space.Objectives{
		GoalDimension: "success",
		CostDimension: "cost",
		RiskDimension: "risk",
	}
}

// evaluatedNode builds an active node with the given outcome rates and
// cost/risk configuration dimensions.
func evaluatedNode(t *testing.T, id string, success, cost, risk float64) *tree.Node {
	t.Helper()
	cfg, err := space.NewConfiguration(map[string]float64{"cost": cost, "risk": risk})
	if err != nil {
		t.Fatalf("NewConfiguration: %v", err)
	}
	outcome, err := space.NewOutcome(success, 0.1, 0.9-success)
	if err != nil {
		t.Fatalf("NewOutcome: %v", err)
	}
	return &tree.Node{
		ID:      id,
		Config:  cfg,
		Outcome: &outcome,
		Status:  tree.NodeActive,
	}
}

func TestDominates(t *testing.T) {
	obj := testObjectives()

	tests := []struct {
		name string
		a, b *tree.Node
		want bool
	}{
		{
			name: "strictly better on all three",
			a:    evaluatedNode(t, "a", 0.50, 0.20, 0.20),
			b:    evaluatedNode(t, "b", 0.40, 0.30, 0.30),
			want: true,
		},
		{
			name: "equal goal but cheaper",
			a:    evaluatedNode(t, "a", 0.40, 0.20, 0.30),
			b:    evaluatedNode(t, "b", 0.40, 0.30, 0.30),
			want: true,
		},
		{
			name: "identical on all objectives",
			a:    evaluatedNode(t, "a", 0.40, 0.30, 0.30),
			b:    evaluatedNode(t, "b", 0.40, 0.30, 0.30),
			want: false,
		},
		{
			name: "better goal but costlier",
			a:    evaluatedNode(t, "a", 0.50, 0.40, 0.30),
			b:    evaluatedNode(t, "b", 0.40, 0.30, 0.30),
			want: false,
		},
		{
			name: "worse goal never dominates",
			a:    evaluatedNode(t, "a", 0.30, 0.10, 0.10),
			b:    evaluatedNode(t, "b", 0.40, 0.30, 0.30),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dominates(tt.a, tt.b, obj); got != tt.want {
				t.Errorf("Dominates(a, b) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDominates_Irreflexive(t *testing.T) {
	obj := testObjectives()
	n := evaluatedNode(t, "n", 0.50, 0.20, 0.20)
	if Dominates(n, n, obj) {
		t.Error("a node must never dominate itself")
	}
}

func TestDominates_Asymmetric(t *testing.T) {
	obj := testObjectives()
	a := evaluatedNode(t, "a", 0.50, 0.20, 0.20)
	b := evaluatedNode(t, "b", 0.40, 0.30, 0.30)
	if !Dominates(a, b, obj) {
		t.Fatal("expected a to dominate b")
	}
	if Dominates(b, a, obj) {
		t.Error("dominance must be asymmetric")
	}
}

func TestDominates_RequiresOutcomes(t *testing.T) {
	obj := testObjectives()
	withOutcome := evaluatedNode(t, "a", 0.50, 0.20, 0.20)
	without := evaluatedNode(t, "b", 0.40, 0.30, 0.30)
	without.Outcome = nil

	if Dominates(withOutcome, without, obj) {
		t.Error("a node without an outcome must never be dominated")
	}
	if Dominates(without, withOutcome, obj) {
		t.Error("a node without an outcome must never dominate")
	}
}

func TestDominates_MissingDimension(t *testing.T) {
	obj := testObjectives()
	full := evaluatedNode(t, "a", 0.50, 0.20, 0.20)

	// Node lacking the risk dimension entirely.
	cfg, err := space.NewConfiguration(map[string]float64{"cost": 0.30})
	if err != nil {
		t.Fatalf("NewConfiguration: %v", err)
	}
	outcome, err := space.NewOutcome(0.40, 0.10, 0.50)
	if err != nil {
		t.Fatalf("NewOutcome: %v", err)
	}
	partial := &tree.Node{ID: "b", Config: cfg, Outcome: &outcome, Status: tree.NodeActive}

	if Dominates(full, partial, obj) {
		t.Error("missing objective data must block dominance")
	}
	if Dominates(partial, full, obj) {
		t.Error("a node missing an objective must not dominate")
	}
}

func TestParetoFilter(t *testing.T) {
	obj := testObjectives()

	// b and c are both dominated by a; d trades off and survives.
	a := evaluatedNode(t, "a", 0.50, 0.20, 0.20)
	b := evaluatedNode(t, "b", 0.40, 0.30, 0.30)
	c := evaluatedNode(t, "c", 0.50, 0.25, 0.20)
	d := evaluatedNode(t, "d", 0.60, 0.40, 0.40)

	eliminated := paretoFilter([]*tree.Node{a, b, c, d}, obj)

	got := make(map[string]bool, len(eliminated))
	for _, n := range eliminated {
		got[n.ID] = true
	}
	if len(eliminated) != 2 || !got["b"] || !got["c"] {
		t.Errorf("eliminated = %v, want exactly {b, c}", keys(got))
	}
}

func TestParetoFilter_OrderIndependent(t *testing.T) {
	obj := testObjectives()

	// a dominates b; c trades cheaper cost against a lower goal value and
	// survives regardless of the order nodes are considered in.
	build := func() []*tree.Node {
		return []*tree.Node{
			evaluatedNode(t, "a", 0.50, 0.20, 0.20),
			evaluatedNode(t, "b", 0.45, 0.25, 0.25),
			evaluatedNode(t, "c", 0.40, 0.10, 0.30),
		}
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, order := range orders {
		nodes := build()
		shuffled := []*tree.Node{nodes[order[0]], nodes[order[1]], nodes[order[2]]}
		eliminated := paretoFilter(shuffled, obj)
		if len(eliminated) != 1 || eliminated[0].ID != "b" {
			ids := make([]string, len(eliminated))
			for i, n := range eliminated {
				ids[i] = n.ID
			}
			t.Errorf("order %v: eliminated = %v, want exactly [b]", order, ids)
		}
	}
}

func TestBeamCut(t *testing.T) {
	nodes := []*tree.Node{
		evaluatedNode(t, "a", 0.30, 0.2, 0.2),
		evaluatedNode(t, "b", 0.50, 0.2, 0.2),
		evaluatedNode(t, "c", 0.40, 0.2, 0.2),
		evaluatedNode(t, "d", 0.20, 0.2, 0.2),
	}
	nodes[0].Seq, nodes[1].Seq, nodes[2].Seq, nodes[3].Seq = 1, 2, 3, 4

	trimmed := beamCut(nodes, "success", 2)
	if len(trimmed) != 2 {
		t.Fatalf("trimmed %d nodes, want 2", len(trimmed))
	}

	got := map[string]bool{trimmed[0].ID: true, trimmed[1].ID: true}
	if !got["a"] || !got["d"] {
		t.Errorf("trimmed = %v, want {a, d}", keys(got))
	}
}

func TestBeamCut_UnderWidth(t *testing.T) {
	nodes := []*tree.Node{
		evaluatedNode(t, "a", 0.30, 0.2, 0.2),
		evaluatedNode(t, "b", 0.50, 0.2, 0.2),
	}
	if trimmed := beamCut(nodes, "success", 3); trimmed != nil {
		t.Errorf("expected no trim when frontier fits the beam, got %d", len(trimmed))
	}
}

func TestBeamCut_TiesBreakBySequence(t *testing.T) {
	a := evaluatedNode(t, "a", 0.40, 0.2, 0.2)
	b := evaluatedNode(t, "b", 0.40, 0.2, 0.2)
	a.Seq, b.Seq = 5, 2

	trimmed := beamCut([]*tree.Node{a, b}, "success", 1)
	if len(trimmed) != 1 || trimmed[0].ID != "a" {
		t.Errorf("expected later-created node trimmed on a tie, got %v", trimmed)
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
