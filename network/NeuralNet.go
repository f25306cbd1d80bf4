// Package network implements the function approximators used by the
// learning loops.
//
// Estimators are multi-layered perceptrons. Training runs on Gorgonia
// computational graphs, while predictions are computed directly on the
// network parameters with gonum so that action selection never touches
// the training graphs.
package network

import (
	"fmt"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"
)

var log = logging.MustGetLogger("dotarl.network")

// Estimator is a trainable function approximator with one output per
// discrete action
type Estimator interface {
	// Predict returns the outputs of the estimator for a batch of
	// states, one row per state
	Predict(states [][]float64) (*mat.Dense, error)

	// Update takes a single gradient step towards targets for the
	// outputs of the given actions and returns the loss before the step
	Update(states [][]float64, actions []int, targets []float64) (float64,
		error)

	// Parameters returns a copy of the estimator's parameters
	Parameters() []*mat.Dense

	// SetParameters overwrites the estimator's parameters
	SetParameters([]*mat.Dense) error

	Features() int
	Outputs() int
}

// CopyParameters overwrites the parameters of dest with those of src
func CopyParameters(src, dest Estimator) error {
	if err := dest.SetParameters(src.Parameters()); err != nil {
		return fmt.Errorf("copyParameters: %w", err)
	}
	return nil
}

// Loss determines what an MLP is trained to predict
type Loss string

const (
	// Regression trains the output of each selected action towards its
	// target with the mean squared error. It is used for action values.
	Regression Loss = "regression"

	// PolicyGradient trains a softmax policy by weighting the log
	// probability of each selected action by its target return. Outputs
	// of a PolicyGradient network are action probabilities.
	PolicyGradient Loss = "policy_gradient"
)
