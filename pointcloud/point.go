package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// HorizontalDistance is the distance between a and b on the ground plane (x, z); height is y.
func HorizontalDistance(a, b r3.Vector) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}

var (
	rampLow  = colorful.Color{R: 1, G: 0, B: 0}
	rampHigh = colorful.Color{R: 0, G: 0, B: 1}
)

// HeightColor maps a raw height onto the red (low) to blue (high) ramp. Heights at or above
// rampTop are fully blue. A degenerate ramp (rampTop <= minZ) or a NaN height is red.
func HeightColor(z, minZ, rampTop float64) colorful.Color {
	if rampTop <= minZ || math.IsNaN(z) {
		return rampLow
	}
	normalized := math.Min(1, (z-minZ)/(rampTop-minZ))
	return rampLow.BlendRgb(rampHigh, normalized)
}
