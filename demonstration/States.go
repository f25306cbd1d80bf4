package demonstration

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/floats"
)

// States is a demonstration made of a sequence of projected state
// vectors. Index i of a States of length N marks progress (i+1)/N
// through the demonstrated episode.
type States [][]float64

// Len returns the number of states in the demonstration
func (s States) Len() int {
	return len(s)
}

// Projection selects the contiguous sub-range [Start, End) of a raw
// state vector that is compared against demonstrations
type Projection struct {
	Start int `mapstructure:"start" yaml:"start"`
	End   int `mapstructure:"end" yaml:"end"`
}

// DefaultProjection selects the hero position from a raw state
var DefaultProjection = Projection{Start: 0, End: 2}

// Len returns the length of a projected state
func (p Projection) Len() int {
	return p.End - p.Start
}

// Validate returns an error if the projection is malformed
func (p Projection) Validate() error {
	if p.Start < 0 || p.End <= p.Start {
		return fmt.Errorf("validate: invalid projection [%v, %v)", p.Start,
			p.End)
	}
	return nil
}

// Fits returns whether state is long enough to be projected
func (p Projection) Fits(state []float64) bool {
	return len(state) >= p.End
}

// Project returns the projected sub-range of state. The returned slice
// shares its backing array with state.
func (p Projection) Project(state []float64) []float64 {
	return state[p.Start:p.End]
}

// Preprocessor transforms a projected state before it is stored or
// compared. A Preprocessor must not modify its argument.
type Preprocessor func([]float64) []float64

// Identity is a Preprocessor which copies its input unchanged
func Identity(state []float64) []float64 {
	return append([]float64(nil), state...)
}

// Scale returns a Preprocessor that divides each feature by scale
func Scale(scale []float64) Preprocessor {
	return func(state []float64) []float64 {
		out := make([]float64, len(state))
		floats.DivTo(out, state, scale)
		return out
	}
}

// StatesProcessor returns a Processor that reads a gob-encoded
// sequence of raw steps and builds a States demonstration from it.
//
// Empty steps are skipped, and steps too short to project are an
// error. A projected, preprocessed step is appended only if it differs
// from the most recently appended step, so consecutive states in the
// demonstration are never identical.
func StatesProcessor(proj Projection, pre Preprocessor) Processor[States] {
	if pre == nil {
		pre = Identity
	}

	return func(name string, r io.Reader) (States, error) {
		var steps [][]float64
		if err := gob.NewDecoder(r).Decode(&steps); err != nil {
			return nil, &ParseError{File: name, Line: 0, Err: err}
		}

		demo := make(States, 0, len(steps))
		for i, step := range steps {
			if len(step) == 0 {
				continue
			}
			if !proj.Fits(step) {
				err := fmt.Errorf("step has %v features, projection needs %v",
					len(step), proj.End)
				return nil, &ParseError{File: name, Line: i + 1, Err: err}
			}

			state := pre(proj.Project(step))
			if len(demo) == 0 ||
				floats.Distance(demo[len(demo)-1], state, 2) > 0 {
				demo = append(demo, state)
			}
		}
		return demo, nil
	}
}

// LoadStates loads every States demonstration in dir
func LoadStates(dir string, proj Projection, pre Preprocessor) ([]States,
	error) {
	if err := proj.Validate(); err != nil {
		return nil, fmt.Errorf("loadStates: %w", err)
	}
	return Load(dir, StatesProcessor(proj, pre))
}

// WriteStates writes raw steps to path in the format read by
// StatesProcessor
func WriteStates(path string, steps [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeStates: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(steps); err != nil {
		file.Close()
		return fmt.Errorf("writeStates: could not encode steps: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("writeStates: %w", err)
	}
	return nil
}
