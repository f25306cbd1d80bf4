package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/dotarl/shaping"
	"github.com/samuelfneumann/dotarl/timestep"
)

// TransitionBuilder constructs transitions from environment steps,
// shaping rewards with a state potential
type TransitionBuilder struct {
	potential shaping.Potential
	discount  float64
}

// NewTransitionBuilder returns a new TransitionBuilder which shapes
// rewards with potential p and discount factor discount
func NewTransitionBuilder(p shaping.Potential,
	discount float64) (*TransitionBuilder, error) {
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("newTransitionBuilder: discount must be in "+
			"[0, 1], have %v", discount)
	}
	if p == nil {
		p = shaping.Zero
	}
	return &TransitionBuilder{potential: p, discount: discount}, nil
}

// Build returns the transition from state to next, with reward
// replaced by reward + γΦ(next) − Φ(state). Build returns nil if either
// state is empty, since such steps straddle an episode boundary and
// carry no usable observation.
func (b *TransitionBuilder) Build(state []float64, action int,
	reward float64, next []float64, done bool) *timestep.Transition {
	if len(state) == 0 || len(next) == 0 {
		log.Debugf("discarding transition with empty state (action %v, "+
			"done %v)", action, done)
		return nil
	}

	shaped := shaping.Shape(b.potential, reward, b.discount, state, next)
	t := timestep.NewTransition(
		append([]float64(nil), state...),
		action,
		shaped,
		append([]float64(nil), next...),
		done,
	)
	return &t
}
