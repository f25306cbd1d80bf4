// Package solver wraps Gorgonia Solvers so that they can be described
// in configuration files.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

// Solver wraps a Gorgonia Solver together with the configuration that
// created it. Solvers hold per-parameter state, so a Solver must only
// be used to train a single network.
type Solver struct {
	G.Solver
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSolver: %w", err)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	// Validate returns an error if the configuration is invalid
	Validate() error
}

// Options describes any Solver in a flat form suitable for
// configuration files. Only the fields relevant to Type are used, and
// zero values select the defaults of each solver.
type Options struct {
	Type     Type    `mapstructure:"type" yaml:"type"`
	StepSize float64 `mapstructure:"step_size" yaml:"step_size"`
	Epsilon  float64 `mapstructure:"epsilon" yaml:"epsilon,omitempty"`
	Rho      float64 `mapstructure:"rho" yaml:"rho,omitempty"`
	Beta1    float64 `mapstructure:"beta1" yaml:"beta1,omitempty"`
	Beta2    float64 `mapstructure:"beta2" yaml:"beta2,omitempty"`
	Clip     float64 `mapstructure:"clip" yaml:"clip,omitempty"`
}

// Create returns a new Solver described by the Options
func (o Options) Create() (*Solver, error) {
	def := func(v, d float64) float64 {
		if v == 0 {
			return d
		}
		return v
	}

	switch o.Type {
	case RMSProp:
		return NewRMSProp(o.StepSize, def(o.Epsilon, DefaultRMSPropEpsilon),
			def(o.Rho, DefaultRMSPropRho), o.Clip)
	case Adam:
		return NewAdam(o.StepSize, def(o.Epsilon, 1e-8), def(o.Beta1, 0.9),
			def(o.Beta2, 0.999))
	case Vanilla:
		return NewVanilla(o.StepSize, o.Clip)
	default:
		return nil, fmt.Errorf("create: unknown solver type %q", o.Type)
	}
}

func validateStepSize(stepSize float64) error {
	if stepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, have %v",
			stepSize)
	}
	return nil
}
