package terrain

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/pointwalk/pointwalk/pointcloud"
)

// groundSample is a point projected onto the horizontal plane. It carries its height along.
type groundSample struct {
	x, z   float64
	height float64
}

func (s groundSample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	o := c.(groundSample)
	if d == 0 {
		return s.x - o.x
	}
	return s.z - o.z
}

func (s groundSample) Dims() int { return 2 }

// Distance is the squared horizontal distance.
func (s groundSample) Distance(c kdtree.Comparable) float64 {
	o := c.(groundSample)
	dx, dz := s.x-o.x, s.z-o.z
	return dx*dx + dz*dz
}

type groundSamples []groundSample

func (g groundSamples) Index(i int) kdtree.Comparable { return g[i] }
func (g groundSamples) Len() int                      { return len(g) }
func (g groundSamples) Slice(start, end int) kdtree.Interface {
	return g[start:end]
}

func (g groundSamples) Pivot(d kdtree.Dim) int {
	return groundPlane{groundSamples: g, dim: d}.Pivot()
}

// groundPlane sorts samples along one dimension for median partitioning.
type groundPlane struct {
	groundSamples
	dim kdtree.Dim
}

func (p groundPlane) Less(i, j int) bool {
	return p.groundSamples[i].Compare(p.groundSamples[j], p.dim) < 0
}

func (p groundPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p groundPlane) Slice(start, end int) kdtree.SortSlicer {
	p.groundSamples = p.groundSamples[start:end]
	return p
}

func (p groundPlane) Swap(i, j int) {
	p.groundSamples[i], p.groundSamples[j] = p.groundSamples[j], p.groundSamples[i]
}

// KDIndex is an Index backed by a k-d tree over the horizontal coordinates of the original
// positions. Points with NaN components are left out. Among equidistant candidates any one may win.
type KDIndex struct {
	tree *kdtree.Tree
	size int
}

// NewKDIndex builds a KDIndex over the store.
func NewKDIndex(store *pointcloud.Store) *KDIndex {
	samples := make(groundSamples, 0, store.Len())
	store.Iterate(func(_ int, p *pointcloud.Point) bool {
		o := p.Original
		if math.IsNaN(o.X) || math.IsNaN(o.Y) || math.IsNaN(o.Z) {
			return true
		}
		samples = append(samples, groundSample{x: o.X, z: o.Z, height: o.Y})
		return true
	})
	if len(samples) == 0 {
		return &KDIndex{}
	}
	return &KDIndex{tree: kdtree.New(samples, false), size: len(samples)}
}

// Len returns the number of samples in the tree.
func (ki *KDIndex) Len() int {
	return ki.size
}

// HeightAt implements Index.
func (ki *KDIndex) HeightAt(x, z, searchRadius float64) (float64, bool) {
	if ki.tree == nil || searchRadius < 0 || math.IsNaN(searchRadius) {
		return 0, false
	}
	nearest, distSq := ki.tree.Nearest(groundSample{x: x, z: z})
	if nearest == nil || distSq > searchRadius*searchRadius {
		return 0, false
	}
	return nearest.(groundSample).height, true
}
