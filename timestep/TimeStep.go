// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep in an environment.
//
// The Observation may be empty. The game reports empty observations on
// steps that straddle a reset or the end of a match, and such steps
// carry no usable state.
type TimeStep struct {
	stepType    StepType
	Reward      float64
	Observation []float64
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r float64, o []float64, n int) TimeStep {
	return TimeStep{t, r, o, n}
}

// Type returns the StepType of the TimeStep
func (t TimeStep) Type() StepType {
	return t.stepType
}

// First returns whether a TimeStep is the first in an environment
func (t TimeStep) First() bool {
	return t.stepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t TimeStep) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t TimeStep) Last() bool {
	return t.stepType == Last
}

// Empty returns whether the TimeStep carries no observation
func (t TimeStep) Empty() bool {
	return len(t.Observation) == 0
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Step Number:  %v  |  " +
		"Observation: %v"

	return fmt.Sprintf(str, t.stepType, t.Reward, t.Number, t.Observation)
}
