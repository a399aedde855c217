// Package scenario provides an end-to-end test harness for full exploration
// runs.
//
// Scenarios exercise the real Controller, Engine, and SQLiteStore with only
// the external collaborators scripted: the proposal generator is a scripted
// client and the scorer defaults to the real Monte-Carlo scorer. Each test
// gets an isolated SQLite database via t.TempDir().
//
// Usage:
//
//	func TestStepwiseGoal(t *testing.T) {
//	    r := scenario.NewRunner(t)
//	    result := r.Run(scenario.Scenario{
//	        Name:     "stepwise-goal",
//	        Baseline: map[string]float64{"appeal": 0.25, "cost": 0.3, "risk": 0.3},
//	        ...
//	    })
//	    scenario.AssertStatus(t, result, tree.ExplorationGoalAchieved)
//	}
package scenario
