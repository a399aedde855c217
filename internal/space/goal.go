package space

import "fmt"

// Goal is a target value for one named objective dimension. The goal is
// achieved once the observed value of that dimension reaches the threshold.
type Goal struct {
	// Dimension names the value the exploration is trying to raise.
	// It may name an outcome rate ("success") or a configuration dimension.
	Dimension string `json:"dimension" yaml:"dimension"`

	// Threshold is the value at which the goal counts as achieved.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// NewGoal constructs a Goal, rejecting empty dimensions and thresholds
// outside [0, 1].
func NewGoal(dimension string, threshold float64) (Goal, error) {
	if dimension == "" {
		return Goal{}, fmt.Errorf("%w: goal dimension cannot be empty", ErrValidation)
	}
	if threshold < 0 || threshold > 1 {
		return Goal{}, fmt.Errorf("%w: goal threshold %.4f outside [0, 1]", ErrValidation, threshold)
	}
	return Goal{Dimension: dimension, Threshold: threshold}, nil
}

// Achieved reports whether an observed value satisfies the goal.
func (g Goal) Achieved(value float64) bool {
	return value >= g.Threshold
}

// Objectives is the fixed three-objective set used for Pareto dominance:
// the goal dimension is maximized while the designated cost-like and
// risk-like dimensions are minimized. The set is deliberately fixed at
// three named objectives rather than generalized to an arbitrary list.
type Objectives struct {
	// GoalDimension is maximized. Matches the exploration's Goal dimension.
	GoalDimension string `json:"goal_dimension" yaml:"goal_dimension"`

	// CostDimension is minimized. Typically a configuration dimension
	// representing implementation or operational cost.
	CostDimension string `json:"cost_dimension" yaml:"cost_dimension"`

	// RiskDimension is minimized. Typically a configuration dimension
	// representing delivery or adoption risk.
	RiskDimension string `json:"risk_dimension" yaml:"risk_dimension"`
}

// DefaultObjectives returns the objective set for a goal, with the
// conventional "cost" and "risk" configuration dimensions minimized.
func DefaultObjectives(goal Goal) Objectives {
	return Objectives{
		GoalDimension: goal.Dimension,
		CostDimension: "cost",
		RiskDimension: "risk",
	}
}
