package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GlorotUConfig implements a configuration of the Glorot Uniform
// initialization algorithm.
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Validate returns an error if the gain is not positive
func (g GlorotUConfig) Validate() error {
	return validateGain(g.Gain)
}

// Rander returns U(-a, a) where a = gain * sqrt(6 / (fanIn + fanOut))
func (g GlorotUConfig) Rander(fanIn, fanOut int,
	src rand.Source) distuv.Rander {
	a := g.Gain * math.Sqrt(6.0/float64(fanIn+fanOut))
	return distuv.Uniform{Min: -a, Max: a, Src: src}
}

// GlorotNConfig implements a configuration of the Glorot Normal
// initialization algorithm.
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot Normal weight initializer.
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Validate returns an error if the gain is not positive
func (g GlorotNConfig) Validate() error {
	return validateGain(g.Gain)
}

// Rander returns N(0, σ²) where σ = gain * sqrt(2 / (fanIn + fanOut))
func (g GlorotNConfig) Rander(fanIn, fanOut int,
	src rand.Source) distuv.Rander {
	sigma := g.Gain * math.Sqrt(2.0/float64(fanIn+fanOut))
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
}

// HeUConfig implements a configuration of the He uniform
// initialization algorithm.
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He Uniform weight initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return newInitWFn(HeUConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeUConfig) Type() Type {
	return HeU
}

// Validate returns an error if the gain is not positive
func (h HeUConfig) Validate() error {
	return validateGain(h.Gain)
}

// Rander returns U(-a, a) where a = gain * sqrt(3 / fanIn)
func (h HeUConfig) Rander(fanIn, _ int, src rand.Source) distuv.Rander {
	a := h.Gain * math.Sqrt(3.0/float64(fanIn))
	return distuv.Uniform{Min: -a, Max: a, Src: src}
}

// HeNConfig implements a configuration of the He normal
// initialization algorithm.
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He Normal weight initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return newInitWFn(HeNConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeNConfig) Type() Type {
	return HeN
}

// Validate returns an error if the gain is not positive
func (h HeNConfig) Validate() error {
	return validateGain(h.Gain)
}

// Rander returns N(0, σ²) where σ = gain / sqrt(fanIn)
func (h HeNConfig) Rander(fanIn, _ int, src rand.Source) distuv.Rander {
	sigma := h.Gain / math.Sqrt(float64(fanIn))
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
}

func validateGain(gain float64) error {
	if gain <= 0 {
		return fmt.Errorf("validate: gain must be positive, have %v", gain)
	}
	return nil
}
