package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	// DefaultWorldSize is the edge length of the cube a dataset is scaled into.
	DefaultWorldSize = 2000.
	// DefaultMaxHeightPercent puts the top of the color ramp at the highest point.
	DefaultMaxHeightPercent = 100.
)

// NormalizeOptions controls how raw survey coordinates are fitted into the scene.
type NormalizeOptions struct {
	Source           string
	WorldSize        float64
	MaxHeightPercent float64
}

func (opts *NormalizeOptions) ensureDefaults() {
	if opts.WorldSize <= 0 {
		opts.WorldSize = DefaultWorldSize
	}
	if opts.MaxHeightPercent <= 0 || opts.MaxHeightPercent > 100 {
		opts.MaxHeightPercent = DefaultMaxHeightPercent
	}
}

// Normalize fits raw survey points into a cube of opts.WorldSize centered on the horizontal axes.
// Raw z is the height and becomes scene Y starting at zero; raw y becomes scene depth (Z). Each
// point is colored on a red to blue ramp by its raw height. Rows with NaN components are kept and
// stay NaN in the scene. Only their finite components count toward the bounds.
func Normalize(raw []r3.Vector, opts NormalizeOptions) *Store {
	opts.ensureDefaults()

	rawMeta := NewMetaData()
	for _, v := range raw {
		rawMeta.Merge(v)
	}

	scale := 1.
	if maxRange := rawMeta.MaxRange(); maxRange > 0 && !math.IsInf(maxRange, 0) {
		scale = opts.WorldSize / maxRange
	}
	cx := axisCenter(rawMeta.MinX, rawMeta.MaxX)
	cy := axisCenter(rawMeta.MinY, rawMeta.MaxY)
	minZ := rawMeta.MinZ
	if math.IsInf(minZ, 0) {
		minZ = 0
	}
	rampTop := minZ + (rawMeta.MaxZ-minZ)*opts.MaxHeightPercent/100

	store := &Store{
		points: make([]Point, len(raw)),
		meta:   NewMetaData(),
		raw:    rawMeta,
		scale:  scale,
		source: opts.Source,
	}
	for i, v := range raw {
		pos := r3.Vector{
			X: (v.X - cx) * scale,
			Y: (v.Z - minZ) * scale,
			Z: (v.Y - cy) * scale,
		}
		c := HeightColor(v.Z, minZ, rampTop)
		store.points[i] = Point{
			Position:      pos,
			Original:      pos,
			Color:         c,
			OriginalColor: c,
		}
		store.meta.Merge(pos)
	}
	return store
}

// axisCenter is the midpoint of [lo, hi], or zero when nothing finite was merged on the axis.
func axisCenter(lo, hi float64) float64 {
	if lo > hi {
		return 0
	}
	return (lo + hi) / 2
}
