// Package shaping implements reward shaping from state potentials and
// demonstrated actions.
//
// A Potential maps a state to a scalar. Potential-based shaping adds
// γΦ(s') − Φ(s) to the environmental reward, which speeds up learning
// without changing the optimal policy. Demonstration-based potentials
// reward states that are further along a recorded play session.
package shaping

import (
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("dotarl.shaping")

// Potential is a state potential function
type Potential interface {
	Potential(state []float64) float64
}

// PotentialFunc adapts an ordinary function to the Potential interface
type PotentialFunc func(state []float64) float64

// Potential returns f(state)
func (f PotentialFunc) Potential(state []float64) float64 {
	return f(state)
}

// Zero is a Potential which is zero everywhere and so shapes nothing
var Zero Potential = PotentialFunc(func([]float64) float64 { return 0.0 })

// Shape returns the potential-based shaped reward for moving from state
// to next with discount factor discount
func Shape(p Potential, reward, discount float64, state,
	next []float64) float64 {
	return reward + discount*p.Potential(next) - p.Potential(state)
}
