package policy

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Schedule is a linearly decaying ε schedule. The schedule holds steps
// evenly spaced values from start to end, both inclusive, and is held
// at end once the decay steps are exhausted.
type Schedule struct {
	values []float64
}

// NewSchedule returns a new Schedule decaying from start to end over
// steps steps
func NewSchedule(start, end float64, steps int) (*Schedule, error) {
	if steps < 1 {
		return nil, fmt.Errorf("newSchedule: steps must be positive, have %v",
			steps)
	}
	if err := Validate(start); err != nil {
		return nil, fmt.Errorf("newSchedule: start: %w", err)
	}
	if err := Validate(end); err != nil {
		return nil, fmt.Errorf("newSchedule: end: %w", err)
	}

	values := make([]float64, steps)
	if steps == 1 {
		values[0] = start
	} else {
		floats.Span(values, start, end)
	}
	return &Schedule{values: values}, nil
}

// At returns ε at the given global step
func (s *Schedule) At(step int) float64 {
	if step < 0 {
		return s.values[0]
	}
	if step >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	return s.values[step]
}

// Len returns the number of decay steps
func (s *Schedule) Len() int {
	return len(s.values)
}
