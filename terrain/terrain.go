// Package terrain answers ground height queries against the original positions of a point cloud.
// Height is the scene Y axis; distances are measured on the horizontal (x, z) plane.
package terrain

import (
	"math"

	"github.com/pkg/errors"

	"github.com/pointwalk/pointwalk/pointcloud"
)

// Index finds the height of the point nearest to a horizontal location.
type Index interface {
	// HeightAt returns the height of the point with the smallest horizontal distance to (x, z) that
	// is no further than searchRadius away. ok is false when no such point exists.
	HeightAt(x, z, searchRadius float64) (height float64, ok bool)
}

// Kind names an Index implementation.
type Kind string

const (
	// KindLinear scans every point on each query.
	KindLinear = Kind("linear")
	// KindKDTree queries a k-d tree built once over the store.
	KindKDTree = Kind("kdtree")
)

// NewIndex builds the named index over the store. An empty kind selects KindLinear.
func NewIndex(store *pointcloud.Store, kind Kind) (Index, error) {
	switch kind {
	case KindLinear, "":
		return NewLinearIndex(store), nil
	case KindKDTree:
		return NewKDIndex(store), nil
	default:
		return nil, errors.Errorf("unknown terrain index %q", kind)
	}
}

// LinearIndex is an Index that scans the whole store for every query.
type LinearIndex struct {
	store *pointcloud.Store
}

// NewLinearIndex returns a LinearIndex over the store.
func NewLinearIndex(store *pointcloud.Store) *LinearIndex {
	return &LinearIndex{store: store}
}

// HeightAt implements Index.
func (li *LinearIndex) HeightAt(x, z, searchRadius float64) (float64, bool) {
	return HeightAt(li.store, x, z, searchRadius)
}

// HeightAt scans the store in iteration order. Among equidistant candidates the first one wins.
func HeightAt(store *pointcloud.Store, x, z, searchRadius float64) (float64, bool) {
	best := math.Inf(1)
	height := 0.
	found := false
	store.Iterate(func(_ int, p *pointcloud.Point) bool {
		d := math.Hypot(p.Original.X-x, p.Original.Z-z)
		if d <= searchRadius && d < best {
			best = d
			height = p.Original.Y
			found = true
		}
		return true
	})
	return height, found
}
