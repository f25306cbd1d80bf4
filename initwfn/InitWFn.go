// Package initwfn implements weight initialization schemes which can be
// described in configuration files.
//
// Unlike the Gorgonia initializers, every scheme draws from an explicit
// random source so that network initialization is reproducible.
package initwfn

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
	Zeroes   Type = "Zeroes"
	Constant Type = "Constant"
)

// InitWFn initializes the weights of a layer
type InitWFn struct {
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newInitWFn: %w", err)
	}
	return &InitWFn{Type: c.Type(), Config: c}, nil
}

// Initialize fills weights with values drawn using src. The rows of
// weights are the inputs of the layer and the columns its outputs.
func (i *InitWFn) Initialize(weights *mat.Dense, src rand.Source) {
	fanIn, fanOut := weights.Dims()
	dist := i.Config.Rander(fanIn, fanOut, src)
	for r := 0; r < fanIn; r++ {
		for c := 0; c < fanOut; c++ {
			weights.Set(r, c, dist.Rand())
		}
	}
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// Config implements a weight initializer configuration and can be used
// to create the distribution weights are drawn from
type Config interface {
	// Rander returns the distribution of the weights of a layer with
	// fanIn inputs and fanOut outputs
	Rander(fanIn, fanOut int, src rand.Source) distuv.Rander

	// Type returns the type of initializer described
	Type() Type

	// Validate returns an error if the configuration is invalid
	Validate() error
}

// Options describes any InitWFn in a flat form suitable for
// configuration files. Only the fields relevant to Type are used.
type Options struct {
	Type   Type    `mapstructure:"type" yaml:"type"`
	Gain   float64 `mapstructure:"gain" yaml:"gain,omitempty"`
	Mean   float64 `mapstructure:"mean" yaml:"mean,omitempty"`
	StdDev float64 `mapstructure:"stddev" yaml:"stddev,omitempty"`
	Low    float64 `mapstructure:"low" yaml:"low,omitempty"`
	High   float64 `mapstructure:"high" yaml:"high,omitempty"`
	Value  float64 `mapstructure:"value" yaml:"value,omitempty"`
}

// Create returns the InitWFn described by the Options
func (o Options) Create() (*InitWFn, error) {
	switch o.Type {
	case GlorotU:
		return NewGlorotU(o.Gain)
	case GlorotN:
		return NewGlorotN(o.Gain)
	case HeU:
		return NewHeU(o.Gain)
	case HeN:
		return NewHeN(o.Gain)
	case Gaussian:
		return NewGaussian(o.Mean, o.StdDev)
	case Uniform:
		return NewUniform(o.Low, o.High)
	case Zeroes:
		return NewZeroes()
	case Constant:
		return NewConstant(o.Value)
	default:
		return nil, fmt.Errorf("create: unknown weight initializer %q",
			o.Type)
	}
}
