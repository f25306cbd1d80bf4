package shaping

import (
	"fmt"

	"github.com/samuelfneumann/dotarl/demonstration"
	"gonum.org/v1/gonum/floats"
)

const (
	// StateScale is the largest potential a StatePotential produces
	StateScale float64 = 100.0

	// StateThreshold is the distance within which a state matches a
	// demonstrated state
	StateThreshold float64 = 0.1

	// StateDemonstrations is the number of demonstrations loaded by
	// LoadStatePotential
	StateDemonstrations int = 3
)

// StatePotential is a Potential computed by matching states against
// the states of recorded demonstrations. A state matching index i of a
// demonstration of length N has candidate potential StateScale*(i+1)/N,
// and the potential is the largest candidate over all demonstrations.
// States that match nothing have zero potential.
//
// A StatePotential is immutable and safe for concurrent use.
type StatePotential struct {
	demos      []demonstration.States
	projection demonstration.Projection
	preprocess demonstration.Preprocessor
}

// NewStatePotential returns a new StatePotential over demos. Queries are
// projected with proj and then preprocessed with pre, which should be
// the same projection and preprocessing used to load demos. If pre is
// nil, queries are not preprocessed.
func NewStatePotential(demos []demonstration.States,
	proj demonstration.Projection,
	pre demonstration.Preprocessor) (*StatePotential, error) {
	if err := proj.Validate(); err != nil {
		return nil, fmt.Errorf("newStatePotential: %w", err)
	}
	if pre == nil {
		pre = demonstration.Identity
	}

	for i, demo := range demos {
		for j, state := range demo {
			if len(state) != proj.Len() {
				return nil, fmt.Errorf("newStatePotential: state %v of "+
					"demonstration %v has length %v, expected %v", j, i,
					len(state), proj.Len())
			}
		}
	}

	return &StatePotential{
		demos:      demos,
		projection: proj,
		preprocess: pre,
	}, nil
}

// LoadStatePotential loads the first StateDemonstrations
// demonstrations in dir and returns a StatePotential over them
func LoadStatePotential(dir string, proj demonstration.Projection,
	pre demonstration.Preprocessor) (*StatePotential, error) {
	if err := proj.Validate(); err != nil {
		return nil, fmt.Errorf("loadStatePotential: %w", err)
	}

	demos, err := demonstration.LoadN(dir, StateDemonstrations,
		demonstration.StatesProcessor(proj, pre))
	if err != nil {
		return nil, fmt.Errorf("loadStatePotential: %w", err)
	}
	for i, demo := range demos {
		log.Infof("demonstration %v has %v states", i, demo.Len())
	}

	return NewStatePotential(demos, proj, pre)
}

// Demonstrations returns the number of demonstrations
func (s *StatePotential) Demonstrations() int {
	return len(s.demos)
}

// Demonstration returns demonstration i. The returned demonstration must
// not be modified.
func (s *StatePotential) Demonstration(i int) demonstration.States {
	return s.demos[i]
}

// Potential returns the potential of state. States shorter than the
// projection have zero potential. Distances are measured after
// preprocessing, so a Scale preprocessor also scales StateThreshold.
func (s *StatePotential) Potential(state []float64) float64 {
	if !s.projection.Fits(state) {
		return 0.0
	}
	query := s.preprocess(s.projection.Project(state))

	potential := 0.0
	for _, demo := range s.demos {
		n := float64(demo.Len())
		for i, demoState := range demo {
			if floats.Distance(query, demoState, 2) >= StateThreshold {
				continue
			}
			if p := StateScale * float64(i+1) / n; p > potential {
				potential = p
			}
		}
	}
	return potential
}
