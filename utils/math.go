// Package utils contains small helpers shared across pointwalk packages.
package utils

import (
	"math"
	"math/rand"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// SampleRandomIntRange samples a random integer within [min, max] using the given rand.Rand. A max
// below min samples min.
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	if max < min {
		return min
	}
	return r.Intn(max-min+1) + min
}
