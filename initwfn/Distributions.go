package initwfn

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GaussianConfig implements a configuration of a weight initializer
// that draws weights from a gaussian distribution
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GaussianConfig) Type() Type {
	return Gaussian
}

// Validate returns an error if the standard deviation is not positive
func (g GaussianConfig) Validate() error {
	if g.StdDev <= 0 {
		return fmt.Errorf("validate: standard deviation must be positive")
	}
	return nil
}

// Rander returns N(Mean, StdDev²)
func (g GaussianConfig) Rander(_, _ int, src rand.Source) distuv.Rander {
	return distuv.Normal{Mu: g.Mean, Sigma: g.StdDev, Src: src}
}

// UniformConfig implements a configuration of a weight initializer that
// draws weights from a uniform distribution
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (u UniformConfig) Type() Type {
	return Uniform
}

// Validate returns an error if the interval is empty
func (u UniformConfig) Validate() error {
	if u.High <= u.Low {
		return fmt.Errorf("validate: empty interval [%v, %v)", u.Low, u.High)
	}
	return nil
}

// Rander returns U(Low, High)
func (u UniformConfig) Rander(_, _ int, src rand.Source) distuv.Rander {
	return distuv.Uniform{Min: u.Low, Max: u.High, Src: src}
}

// ConstantConfig implements a configuration of a weight initializer
// that initializes all weights to a constant value.
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight intializer
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(ConstantConfig{Value: value})
}

// NewZeroes returns a new weight initializer setting all weights to 0
func NewZeroes() (*InitWFn, error) {
	init, err := newInitWFn(ConstantConfig{Value: 0})
	if err != nil {
		return nil, err
	}
	init.Type = Zeroes
	return init, nil
}

// Type returns the type of the weight initializer created using this
// config
func (c ConstantConfig) Type() Type {
	return Constant
}

// Validate always returns nil
func (c ConstantConfig) Validate() error {
	return nil
}

// Rander returns a distribution which always draws Value
func (c ConstantConfig) Rander(_, _ int, _ rand.Source) distuv.Rander {
	return constant(c.Value)
}

// constant is a distuv.Rander which always draws the same value
type constant float64

// Rand returns the constant
func (c constant) Rand() float64 {
	return float64(c)
}
