package environment

import (
	"fmt"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation.
type SpecType int

const (
	Action SpecType = iota
	Observation
)

func (s SpecType) String() string {
	if s == Action {
		return "Action"
	}
	return "Observation"
}

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification.
//
// For discrete actions, Size is the number of actions and actions are
// enumerated from 0. For observations, Size is the length of a state
// vector.
type Spec struct {
	Size int
	Type SpecType
	Cardinality
}

// NewSpec constructs a new environment specification
func NewSpec(size int, t SpecType, cardinality Cardinality) Spec {
	if size < 1 {
		panic(fmt.Sprintf("newSpec: size must be positive, have %v", size))
	}
	return Spec{Size: size, Type: t, Cardinality: cardinality}
}

// ValidateDiscreteActions returns an error if the Environment does not
// have discrete, zero-indexed actions
func ValidateDiscreteActions(e Environment) error {
	spec := e.ActionSpec()
	if spec.Type != Action {
		return fmt.Errorf("validateDiscreteActions: action spec has type %v",
			spec.Type)
	}
	if spec.Cardinality != Discrete {
		return fmt.Errorf("validateDiscreteActions: cannot use %v actions",
			spec.Cardinality)
	}
	if spec.Size < 1 {
		return fmt.Errorf("validateDiscreteActions: need at least one " +
			"action")
	}
	return nil
}
