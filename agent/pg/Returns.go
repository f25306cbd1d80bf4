package pg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// minStdDev is the smallest standard deviation that returns are
// divided by when normalized
const minStdDev float64 = 1e-9

// DiscountedReturns returns the discounted return from each step of an
// episode with the given rewards, G[i] = r[i] + γG[i+1]
func DiscountedReturns(rewards []float64, discount float64) []float64 {
	returns := make([]float64, len(rewards))
	cumulative := 0.0
	for i := len(rewards) - 1; i >= 0; i-- {
		cumulative = cumulative*discount + rewards[i]
		returns[i] = cumulative
	}
	return returns
}

// Normalize returns x shifted to zero mean and scaled to unit
// population standard deviation. If the standard deviation is smaller
// than 1e-9, x is only shifted.
func Normalize(x []float64) []float64 {
	normalized := append([]float64(nil), x...)
	if len(x) == 0 {
		return normalized
	}

	mean := stat.Mean(x, nil)
	std := math.Sqrt(stat.Moment(2, x, nil))

	floats.AddConst(-mean, normalized)
	if std > minStdDev {
		floats.Scale(1/std, normalized)
	}
	return normalized
}
