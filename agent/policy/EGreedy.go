// Package policy implements ε-greedy action selection over action
// values or action preferences, and the schedules that anneal ε
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ActionDistribution returns the ε-greedy distribution over actions
// given their values. Each action has probability ε/A, and the first
// action with maximum value additionally has probability 1-ε.
func ActionDistribution(values []float64, epsilon float64) []float64 {
	numActions := len(values)

	// Calculate the ε probability of choosing any action at random
	prob := epsilon / float64(numActions)
	actionProbabilities := make([]float64, numActions)
	for i := range actionProbabilities {
		actionProbabilities[i] = prob
	}

	// Adjust the probability of choosing the greedy action
	greedyAction := floats.MaxIdx(values)
	actionProbabilities[greedyAction] += (1.0 - epsilon)

	return actionProbabilities
}

// Sample samples an action from a distribution over actions
func Sample(probabilities []float64, source rand.Source) int {
	dist := distuv.NewCategorical(probabilities, source)
	return int(dist.Rand())
}

// EGreedy implements an ε-greedy policy over a vector of action values
type EGreedy struct {
	source rand.Source
}

// NewEGreedy returns a new EGreedy policy seeded with seed
func NewEGreedy(seed uint64) *EGreedy {
	return &EGreedy{source: rand.NewSource(seed)}
}

// SelectAction selects an action ε-greedily with respect to values
func (e *EGreedy) SelectAction(values []float64, epsilon float64) int {
	return Sample(ActionDistribution(values, epsilon), e.source)
}

// Validate returns an error if epsilon is not a probability
func Validate(epsilon float64) error {
	if epsilon < 0 || epsilon > 1 {
		return fmt.Errorf("validate: ε must be in [0, 1], have %v", epsilon)
	}
	return nil
}
