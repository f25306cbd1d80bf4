package shaping

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/dotarl/demonstration"
	"gonum.org/v1/gonum/mat"
)

const (
	// AdviceScale is the largest action potential an ActionAdvice
	// produces
	AdviceScale float64 = 10.0

	// DefaultObservations is the observation file read by default
	// for action advice
	DefaultObservations string = "3839916254_623964743.obs"
)

// AdviceWeights returns the diagonal weights of the kernel used to
// compare advice states. Previous action and the first two hero
// features have weight 1 and every other feature has weight 0.2.
func AdviceWeights() *mat.DiagDense {
	weights := make([]float64, demonstration.AdviceStateSize)
	for i := range weights {
		if i < 3 {
			weights[i] = 1.0
		} else {
			weights[i] = 0.2
		}
	}
	return mat.NewDiagDense(len(weights), weights)
}

// ActionAdvice scores actions in a state by their similarity to
// demonstrated state-action pairs. The score of action a in state s is
// the largest kernel value
//
//	AdviceScale * exp(-0.5 * (s - d)ᵀ W (s - d))
//
// over all demonstrated states d in which a was taken, or zero if a was
// never demonstrated.
type ActionAdvice struct {
	demos      []demonstration.Pairs
	numActions int
	weights    *mat.DiagDense
}

// NewActionAdvice returns a new ActionAdvice over demos
func NewActionAdvice(demos []demonstration.Pairs,
	numActions int) (*ActionAdvice, error) {
	if numActions < 2 {
		return nil, fmt.Errorf("newActionAdvice: need at least 2 actions, "+
			"have %v", numActions)
	}

	for i, demo := range demos {
		for j, pair := range demo {
			if len(pair.State) != demonstration.AdviceStateSize {
				return nil, fmt.Errorf("newActionAdvice: state %v of "+
					"demonstration %v has length %v, expected %v", j, i,
					len(pair.State), demonstration.AdviceStateSize)
			}
			if pair.Action < 0 || pair.Action >= numActions {
				return nil, fmt.Errorf("newActionAdvice: action %v of "+
					"demonstration %v out of range [0, %v)", pair.Action, i,
					numActions)
			}
		}
	}

	return &ActionAdvice{
		demos:      demos,
		numActions: numActions,
		weights:    AdviceWeights(),
	}, nil
}

// LoadActionAdvice returns a new ActionAdvice over the single
// observation file at path
func LoadActionAdvice(path string, numActions int) (*ActionAdvice, error) {
	demo, err := demonstration.LoadPairs(path, numActions)
	if err != nil {
		return nil, fmt.Errorf("loadActionAdvice: %w", err)
	}
	log.Infof("demonstration %v has %v state-action pairs", path, demo.Len())

	return NewActionAdvice([]demonstration.Pairs{demo}, numActions)
}

// NumActions returns the number of actions scored
func (a *ActionAdvice) NumActions() int {
	return a.numActions
}

// ActionPotentials returns a matrix with one row per state in states and
// one column per action, holding the score of each action in each state
func (a *ActionAdvice) ActionPotentials(states [][]float64) (*mat.Dense,
	error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("actionPotentials: no states to score")
	}

	potentials := mat.NewDense(len(states), a.numActions, nil)
	diff := mat.NewVecDense(demonstration.AdviceStateSize, nil)
	for row, state := range states {
		if len(state) != demonstration.AdviceStateSize {
			return nil, fmt.Errorf("actionPotentials: state %v has length "+
				"%v, expected %v", row, len(state),
				demonstration.AdviceStateSize)
		}
		query := mat.NewVecDense(len(state), state)

		for _, demo := range a.demos {
			for _, pair := range demo {
				demoState := mat.NewVecDense(len(pair.State), pair.State)
				diff.SubVec(query, demoState)

				kernel := AdviceScale * math.Exp(-0.5*mat.Inner(diff,
					a.weights, diff))
				if kernel > potentials.At(row, pair.Action) {
					potentials.Set(row, pair.Action, kernel)
				}
			}
		}
	}

	return potentials, nil
}
