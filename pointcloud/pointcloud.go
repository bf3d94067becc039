// Package pointcloud holds a loaded survey point cloud. Each point keeps the position and color it
// was loaded with next to the position and color currently displayed, so per-frame effects can
// always be recomputed from the originals.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
)

// Toucher records which viewer perspective first entered a point's interaction sphere.
type Toucher int

const (
	// TouchedByNone marks a point no viewer has reached yet.
	TouchedByNone Toucher = iota
	// TouchedByMouse marks a point first reached from the mouse perspective.
	TouchedByMouse
	// TouchedByOwl marks a point first reached from the bird perspective.
	TouchedByOwl
	// TouchedByHuman marks a point first reached from the human perspective.
	TouchedByHuman
)

func (t Toucher) String() string {
	switch t {
	case TouchedByNone:
		return "none"
	case TouchedByMouse:
		return "mouse"
	case TouchedByOwl:
		return "owl"
	case TouchedByHuman:
		return "human"
	default:
		return "unknown"
	}
}

// Point is a single sample of the cloud. Original and OriginalColor never change after load.
type Point struct {
	Position      r3.Vector
	Original      r3.Vector
	Color         colorful.Color
	OriginalColor colorful.Color
	TouchedBy     Toucher
}

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	// NaNCount is the number of merged points with at least one NaN component. The NaN components
	// are skipped, the finite components of the same point still widen the bounds.
	NaNCount int
}

// NewMetaData returns meta data with inverted bounds, ready to be merged into.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.Inf(1),
		MaxX: math.Inf(-1),
		MinY: math.Inf(1),
		MaxY: math.Inf(-1),
		MinZ: math.Inf(1),
		MaxZ: math.Inf(-1),
	}
}

// Merge updates the bounds to include the given point. Comparisons with NaN are false, so a NaN
// component never changes its axis.
func (meta *MetaData) Merge(v r3.Vector) {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
		meta.NaNCount++
	}
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}

	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
}

// Center returns the midpoint of the bounds.
func (meta MetaData) Center() r3.Vector {
	return r3.Vector{
		X: (meta.MinX + meta.MaxX) / 2,
		Y: (meta.MinY + meta.MaxY) / 2,
		Z: (meta.MinZ + meta.MaxZ) / 2,
	}
}

// MaxRange returns the largest extent over the three axes.
func (meta MetaData) MaxRange() float64 {
	return math.Max(meta.MaxX-meta.MinX, math.Max(meta.MaxY-meta.MinY, meta.MaxZ-meta.MinZ))
}

// Store is the ordered set of points for one loaded dataset. Iteration order is load order.
type Store struct {
	points []Point
	meta   MetaData
	raw    MetaData
	scale  float64
	source string
}

// NewStore builds a store directly from scene positions and colors, one point per position. Colors
// may be shorter than positions; missing colors are white.
func NewStore(source string, positions []r3.Vector, colors []colorful.Color) *Store {
	store := &Store{
		points: make([]Point, len(positions)),
		meta:   NewMetaData(),
		raw:    NewMetaData(),
		scale:  1,
		source: source,
	}
	white := colorful.Color{R: 1, G: 1, B: 1}
	for i, p := range positions {
		c := white
		if i < len(colors) {
			c = colors[i]
		}
		store.points[i] = Point{Position: p, Original: p, Color: c, OriginalColor: c}
		store.meta.Merge(p)
		store.raw.Merge(p)
	}
	return store
}

// Len returns the number of points in the store.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// At returns the i-th point for in-place mutation.
func (s *Store) At(i int) *Point {
	return &s.points[i]
}

// Iterate calls fn with every point in load order until fn returns false.
func (s *Store) Iterate(fn func(i int, p *Point) bool) {
	if s == nil {
		return
	}
	for i := range s.points {
		if !fn(i, &s.points[i]) {
			return
		}
	}
}

// MetaData returns the bounds of the scene (normalized) original positions.
func (s *Store) MetaData() MetaData {
	return s.meta
}

// RawMetaData returns the bounds of the input before normalization.
func (s *Store) RawMetaData() MetaData {
	return s.raw
}

// Scale returns the factor applied to raw coordinates during normalization.
func (s *Store) Scale() float64 {
	return s.scale
}

// Source returns the name of the dataset the store was loaded from.
func (s *Store) Source() string {
	return s.source
}

// Reset restores every displayed position and color and clears the touch markers.
func (s *Store) Reset() {
	s.Iterate(func(_ int, p *Point) bool {
		p.Position = p.Original
		p.Color = p.OriginalColor
		p.TouchedBy = TouchedByNone
		return true
	})
}

// TouchedCounts returns how many points each toucher has claimed.
func (s *Store) TouchedCounts() map[Toucher]int {
	counts := map[Toucher]int{}
	s.Iterate(func(_ int, p *Point) bool {
		if p.TouchedBy != TouchedByNone {
			counts[p.TouchedBy]++
		}
		return true
	})
	return counts
}
