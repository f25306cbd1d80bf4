// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip returns value limited to [min, max]
func Clip(value, min, max float64) float64 {
	return math.Max(math.Min(value, max), min)
}

// ClipPoint limits each coordinate i of point to bounds[i] in place.
// Coordinates without bounds are left unchanged.
func ClipPoint(point []float64, bounds []r1.Interval) {
	for i := range point {
		if i >= len(bounds) {
			return
		}
		point[i] = Clip(point[i], bounds[i].Min, bounds[i].Max)
	}
}

// OneHot returns a vector of length size which is 1 at index and 0
// everywhere else
func OneHot(index, size int) []float64 {
	vec := make([]float64, size)
	vec[index] = 1.0
	return vec
}
