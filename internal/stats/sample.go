package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Alpha is the two-sided significance threshold applied to every comparison.
const Alpha = 0.005

// Sample is the set of per-client observations for one variant of one metric.
type Sample []float64

func (s Sample) Len() int {
	return len(s)
}

// Mean returns the arithmetic mean, or NaN for an empty sample.
func (s Sample) Mean() float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return stat.Mean(s, nil)
}

// Variance returns the Bessel-corrected sample variance.
func (s Sample) Variance() float64 {
	if len(s) < 2 {
		return math.NaN()
	}
	return stat.Variance(s, nil)
}

// StdDev returns the Bessel-corrected sample standard deviation.
func (s Sample) StdDev() float64 {
	return math.Sqrt(s.Variance())
}
