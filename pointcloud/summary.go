package pointcloud

import (
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
)

// Summary describes a loaded dataset for operators.
type Summary struct {
	Source   string
	Count    int
	NaNCount int
	Scale    float64
	Raw      MetaData
	Scene    MetaData

	// Height statistics over the scene heights of points without NaN components.
	HeightMean   float64
	HeightMedian float64
	HeightStdDev float64
}

// Summarize computes the summary of a store.
func Summarize(store *Store) (Summary, error) {
	summary := Summary{
		Source:   store.Source(),
		Count:    store.Len(),
		NaNCount: store.RawMetaData().NaNCount,
		Scale:    store.Scale(),
		Raw:      store.RawMetaData(),
		Scene:    store.MetaData(),
	}

	heights := stats.Float64Data(validHeights(store))
	if len(heights) == 0 {
		return summary, nil
	}

	var err error
	if summary.HeightMean, err = stats.Mean(heights); err != nil {
		return Summary{}, err
	}
	if summary.HeightMedian, err = stats.Median(heights); err != nil {
		return Summary{}, err
	}
	if summary.HeightStdDev, err = stats.StandardDeviation(heights); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// validHeights returns the scene heights of every point without NaN components.
func validHeights(store *Store) []float64 {
	heights := make([]float64, 0, store.Len())
	store.Iterate(func(_ int, p *Point) bool {
		o := p.Original
		if !math.IsNaN(o.X) && !math.IsNaN(o.Y) && !math.IsNaN(o.Z) {
			heights = append(heights, o.Y)
		}
		return true
	})
	return heights
}

// HeightHistogram buckets the scene heights of the store. Points with NaN components are left out.
func HeightHistogram(store *Store, bins int) histogram.Histogram {
	heights := validHeights(store)
	if len(heights) == 0 {
		return histogram.Histogram{}
	}
	if bins < 1 {
		bins = 1
	}
	return histogram.Hist(bins, heights)
}
