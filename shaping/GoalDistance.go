package shaping

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultGoal is the map position of the goal, the middle-lane tower
var DefaultGoal = []float64{-1543.998535, -1407.998291}

// GoalDistance is a Potential equal to the Euclidean distance from the
// hero position, the first coordinates of a state, to a fixed goal
type GoalDistance struct {
	goal []float64
}

// NewGoalDistance returns a new GoalDistance potential
func NewGoalDistance(goal []float64) (*GoalDistance, error) {
	if len(goal) == 0 {
		return nil, fmt.Errorf("newGoalDistance: goal cannot be empty")
	}
	return &GoalDistance{goal: append([]float64(nil), goal...)}, nil
}

// Goal returns a copy of the goal position
func (g *GoalDistance) Goal() []float64 {
	return append([]float64(nil), g.goal...)
}

// Potential returns the distance from state to the goal. States too
// short to hold a position have zero potential.
func (g *GoalDistance) Potential(state []float64) float64 {
	if len(state) < len(g.goal) {
		return 0.0
	}
	return floats.Distance(state[:len(g.goal)], g.goal, 2)
}
