package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SelectorType determines which Selector a Config creates
type SelectorType string

const (
	Uniform SelectorType = "uniform"
	Fifo    SelectorType = "fifo"
)

// Selector implements functionality for choosing how data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects n distinct indices in [0, size), where index 0
	// is the oldest transition in the buffer
	choose(size, n int) []int
}

// CreateSelector returns a new Selector of type t
func CreateSelector(t SelectorType, seed uint64) (Selector, error) {
	switch t {
	case Uniform, "":
		return NewUniformSelector(seed), nil
	case Fifo:
		return NewFifoSelector(), nil
	default:
		return nil, fmt.Errorf("createSelector: unknown selector type %q", t)
	}
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly without replacement
type uniformSelector struct {
	source rand.Source
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly from an experience replay buffer
func NewUniformSelector(seed uint64) Selector {
	return &uniformSelector{source: rand.NewSource(seed)}
}

// choose selects a number of indices at which to draw data from the
// buffer
func (u *uniformSelector) choose(size, n int) []int {
	selected := make([]int, n)
	sampleuv.WithoutReplacement(selected, size, u.source)
	return selected
}

// fifoSelector is a Selector which selects the oldest data in an
// experience replay buffer
type fifoSelector struct{}

// NewFifoSelector returns a new Selector which draws the oldest data
// from an experience replay buffer
func NewFifoSelector() Selector {
	return fifoSelector{}
}

// choose selects a number of indices at which to draw data from the
// buffer
func (fifoSelector) choose(size, n int) []int {
	selected := make([]int, n)
	for i := range selected {
		selected[i] = i
	}
	return selected
}
