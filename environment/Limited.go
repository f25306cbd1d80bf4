package environment

import ts "github.com/samuelfneumann/dotarl/timestep"

// StepLimit is an Ender cutting off episodes once they reach a number
// of steps. A cut-off step keeps its reward and observation, so the
// last transition of a cut-off episode is stored like any other.
type StepLimit int

// NewStepLimit returns an Ender cutting off episodes after steps steps
func NewStepLimit(steps int) StepLimit {
	return StepLimit(steps)
}

// End turns t into the last step of its episode if it reached the
// limit, and reports whether it did
func (s StepLimit) End(t *ts.TimeStep) bool {
	if t.Number < int(s) {
		return false
	}
	*t = ts.New(ts.Last, t.Reward, t.Observation, t.Number)
	return true
}

// Limited wraps an Environment so that its episodes are cut off by an
// Ender, regardless of whether the wrapped Environment has finished
// the episode
type Limited struct {
	Environment
	ender Ender
}

// NewLimited returns e with episodes cut off after steps steps
func NewLimited(e Environment, steps int) *Limited {
	return &Limited{Environment: e, ender: NewStepLimit(steps)}
}

// Execute executes action in the wrapped Environment, ending the
// episode if the step limit has been reached
func (l *Limited) Execute(action int) (ts.TimeStep, error) {
	step, err := l.Environment.Execute(action)
	if err != nil {
		return step, err
	}
	l.ender.End(&step)
	return step, nil
}
