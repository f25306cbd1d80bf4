// Package expreplay implements a bounded experience replay buffer and
// the construction of the transitions stored in it.
package expreplay

import (
	"fmt"

	"github.com/op/go-logging"
	"github.com/samuelfneumann/dotarl/timestep"
)

var log = logging.MustGetLogger("dotarl.expreplay")

// Config implements a specific configuration of a Buffer
type Config struct {
	SampleMethod SelectorType `mapstructure:"sample_method" yaml:"sample_method"`
	Capacity     int          `mapstructure:"capacity" yaml:"capacity"`
}

// Create creates and returns the Buffer with the specified Config.
func (c Config) Create(seed uint64) (*Buffer, error) {
	sampler, err := CreateSelector(c.SampleMethod, seed)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	return New(c.Capacity, sampler)
}

// Buffer is a fixed-capacity experience replay buffer. Transitions are
// stored in a circular arena: once the buffer is full, each push
// overwrites the oldest transition.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	transitions []timestep.Transition
	head        int // Slot of the next push
	size        int

	// Outlines how data is sampled
	sampler Selector
}

// New creates and returns a new Buffer holding at most capacity
// transitions, sampled with sampler
func New(capacity int, sampler Selector) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1")
	}
	if sampler == nil {
		return nil, fmt.Errorf("new: sampler cannot be nil")
	}

	return &Buffer{
		transitions: make([]timestep.Transition, capacity),
		sampler:     sampler,
	}, nil
}

// Push adds a transition to the buffer, evicting the oldest transition
// if the buffer is full. Pushing nil, a discarded transition, is a
// no-op.
func (b *Buffer) Push(t *timestep.Transition) {
	if t == nil {
		return
	}

	b.transitions[b.head] = *t
	b.head = (b.head + 1) % len(b.transitions)
	if b.size < len(b.transitions) {
		b.size++
	}
}

// Sample returns n distinct transitions from the buffer, chosen by the
// buffer's Selector. It is an error to sample more transitions than the
// buffer holds.
func (b *Buffer) Sample(n int) ([]timestep.Transition, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample: cannot sample %v transitions", n)
	}
	if n > 0 && b.size == 0 {
		return nil, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if n > b.size {
		err := fmt.Errorf("%w: requested %v, have %v",
			errInsufficientSamples, n, b.size)
		return nil, &ExpReplayError{Op: "sample", Err: err}
	}

	batch := make([]timestep.Transition, n)
	for i, index := range b.sampler.choose(b.size, n) {
		batch[i] = b.At(index)
	}
	return batch, nil
}

// At returns the ith oldest transition in the buffer
func (b *Buffer) At(i int) timestep.Transition {
	if i < 0 || i >= b.size {
		panic(fmt.Sprintf("at: index %v out of range [0, %v)", i, b.size))
	}
	slot := (b.head - b.size + i + len(b.transitions)) % len(b.transitions)
	return b.transitions[slot]
}

// Len returns the number of transitions in the buffer
func (b *Buffer) Len() int {
	return b.size
}

// Capacity returns the maximum number of transitions in the buffer
func (b *Buffer) Capacity() int {
	return len(b.transitions)
}
