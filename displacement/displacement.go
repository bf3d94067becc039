// Package displacement pushes the points around a viewer out onto the surface of a sphere and
// tints every point a viewer has ever reached.
package displacement

import (
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pointwalk/pointwalk/pointcloud"
)

// TintWeight is how far a touched point's color is blended toward its toucher's tint.
const TintWeight = 0.5

var (
	mouseTint = colorful.Color{R: 0x80 / 255., G: 0x80 / 255., B: 0x80 / 255.}
	owlTint   = colorful.Color{R: 1, G: 0x66 / 255., B: 0}
	humanTint = colorful.Color{R: 1, G: 1, B: 1}

	up = r3.Vector{Y: 1}
)

// Tint returns the color associated with a toucher. TouchedByNone has no tint.
func Tint(by pointcloud.Toucher) (colorful.Color, bool) {
	switch by {
	case pointcloud.TouchedByMouse:
		return mouseTint, true
	case pointcloud.TouchedByOwl:
		return owlTint, true
	case pointcloud.TouchedByHuman:
		return humanTint, true
	case pointcloud.TouchedByNone:
		fallthrough
	default:
		return colorful.Color{}, false
	}
}

// Stats counts what a single Update did.
type Stats struct {
	Displaced    int
	NewlyTouched int
}

// Update recomputes every point's displayed position and color from its originals.
//
// A point whose original position lies strictly inside the sphere of the given radius around the
// viewer is moved onto the sphere surface along the direction from the viewer to its original
// position, or straight up when the two coincide. It is marked as touched by `by` unless another
// toucher got there first. Every other point is shown at its original position. Touched points
// keep their toucher's tint for the rest of the session whether or not they are displaced.
// A radius of zero or less displaces nothing.
func Update(store *pointcloud.Store, viewer r3.Vector, sphereRadius float64, by pointcloud.Toucher) Stats {
	var stats Stats
	store.Iterate(func(_ int, p *pointcloud.Point) bool {
		offset := p.Original.Sub(viewer)
		distance := offset.Norm()
		if sphereRadius > 0 && distance < sphereRadius {
			if p.TouchedBy == pointcloud.TouchedByNone && by != pointcloud.TouchedByNone {
				p.TouchedBy = by
				stats.NewlyTouched++
			}
			dir := up
			if distance > 0 {
				dir = offset.Mul(1 / distance)
			}
			p.Position = viewer.Add(dir.Mul(sphereRadius))
			stats.Displaced++
		} else {
			p.Position = p.Original
		}

		if tint, ok := Tint(p.TouchedBy); ok {
			p.Color = p.OriginalColor.BlendRgb(tint, TintWeight)
		} else {
			p.Color = p.OriginalColor
		}
		return true
	})
	return stats
}
