// Package environment outlines the interfaces and structs needed to
// implement concrete environments that a learning loop can interact with.
//
// The contract with the game is deliberately small: an environment can
// be reset, and it can execute a single discrete action. Any simulator
// or live game client satisfying Environment is interchangeable.
package environment

import (
	ts "github.com/samuelfneumann/dotarl/timestep"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() []float64
}

// Ender determines when an episode should be ended. End modifies the
// argument TimeStep so that it is the last step of the episode if the
// episode should end.
type Ender interface {
	End(*ts.TimeStep) bool
}

// Environment implements an environment which an agent can act in.
type Environment interface {
	// Reset starts a new episode and returns its first TimeStep
	Reset() (ts.TimeStep, error)

	// Execute takes the discrete action in the environment and returns
	// the resulting TimeStep. The returned TimeStep is the last step of
	// the episode if the environment reports that the episode is done.
	Execute(action int) (ts.TimeStep, error)

	ObservationSpec() Spec
	ActionSpec() Spec
}

// Closer is an Environment that holds resources which must be released
// after training.
type Closer interface {
	Environment
	Close() error
}
