package timestep

import "fmt"

// Transition is a single (s, a, r, s', done) tuple. The reward already
// includes any shaping term. Transitions are not modified after they
// are constructed.
type Transition struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
	Done      bool
}

// NewTransition returns a new Transition
func NewTransition(state []float64, action int, reward float64,
	nextState []float64, done bool) Transition {
	return Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Done:      done,
	}
}

// Continuation returns 0 if the transition ended the episode and 1
// otherwise. It multiplies the bootstrapped value in a TD target.
func (t Transition) Continuation() float64 {
	if t.Done {
		return 0.0
	}
	return 1.0
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | S: %v  |  A: %v  |  R: %.4f  |  S': %v  |"+
		"  Done: %v", t.State, t.Action, t.Reward, t.NextState, t.Done)
}
