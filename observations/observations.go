// Package observations links random points of a cloud to species observation records so a viewer
// can hover over or click them.
package observations

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"

	"github.com/pointwalk/pointwalk/pointcloud"
	"github.com/pointwalk/pointwalk/utils"
)

const (
	// DefaultMinLinks is the fewest links made for a large enough cloud.
	DefaultMinLinks = 15
	// DefaultMaxLinks is the most links made for a cloud.
	DefaultMaxLinks = 25
	// DefaultPickThreshold is how far from a ray a point may lie and still be hit.
	DefaultPickThreshold = 10.
)

// Record is a species observation.
type Record struct {
	Species string `json:"species"`
	Taxon   string `json:"taxon"`
	URL     string `json:"url"`
}

const observationsURL = "https://www.inaturalist.org/observations?nelat=40.71121129740224&nelng=-73.97796882726138" +
	"&subview=map&swlat=40.676069500562605&swlng=-74.02088417149966&taxon_id=%d"

func brooklyn(species, taxon string, taxonID int) Record {
	return Record{Species: species, Taxon: taxon, URL: fmt.Sprintf(observationsURL, taxonID)}
}

// DefaultRecords returns observations made around Brooklyn.
func DefaultRecords() []Record {
	return []Record{
		brooklyn("American Robin", "Turdus migratorius", 6892),
		brooklyn("House Mouse", "Mus musculus", 43115),
		brooklyn("Eastern Gray Squirrel", "Sciurus carolinensis", 46017),
		brooklyn("Red-tailed Hawk", "Buteo jamaicensis", 5212),
		brooklyn("Common Dandelion", "Taraxacum officinale", 47602),
		brooklyn("Northern Cardinal", "Cardinalis cardinalis", 9083),
		brooklyn("Mourning Dove", "Zenaida macroura", 5279),
		brooklyn("Blue Jay", "Cyanocitta cristata", 8229),
		brooklyn("White Clover", "Trifolium repens", 50618),
		brooklyn("Red Maple", "Acer rubrum", 51806),
		brooklyn("Norway Rat", "Rattus norvegicus", 42998),
		brooklyn("Raccoon", "Procyon lotor", 41630),
		brooklyn("House Sparrow", "Passer domesticus", 13765),
		brooklyn("Plantain", "Plantago major", 54756),
		brooklyn("Rock Pigeon", "Columba livia", 4960),
	}
}

// Link ties a point of the store to a record. Position is the point's original position.
type Link struct {
	Index    int
	Record   Record
	Position r3.Vector
}

// Links is every link made for a store, in creation order.
type Links []Link

// LinkRandom links min(random count in [minLinks, maxLinks], store.Len(), 2*len(records))
// distinct random points to random records.
func LinkRandom(store *pointcloud.Store, records []Record, rng *rand.Rand, minLinks, maxLinks int) Links {
	if store.Len() == 0 || len(records) == 0 {
		return nil
	}
	count := utils.SampleRandomIntRange(minLinks, maxLinks, rng)
	count = lo.Min([]int{count, store.Len(), 2 * len(records)})

	links := make(Links, 0, count)
	used := make(map[int]struct{}, count)
	for len(links) < count {
		index := rng.Intn(store.Len())
		if _, ok := used[index]; ok {
			continue
		}
		used[index] = struct{}{}
		links = append(links, Link{
			Index:    index,
			Record:   records[rng.Intn(len(records))],
			Position: store.At(index).Original,
		})
	}
	return links
}

// At returns the link of a point index.
func (ls Links) At(index int) (Link, bool) {
	return lo.Find(ls, func(l Link) bool {
		return l.Index == index
	})
}

// Species returns the distinct species linked, in first seen order.
func (ls Links) Species() []string {
	return lo.Uniq(lo.Map(ls, func(l Link, _ int) string {
		return l.Record.Species
	}))
}

// rayDistance returns how far along a unit ray the closest approach to p lies, and how far p is
// from the ray there.
func rayDistance(origin, dir, p r3.Vector) (along, off float64) {
	along = p.Sub(origin).Dot(dir)
	return along, p.Sub(origin.Add(dir.Mul(along))).Norm()
}

// Pick returns the linked point nearest to the origin among those whose displayed position lies
// within threshold of the ray. Points behind the origin are never hit.
func (ls Links) Pick(store *pointcloud.Store, origin, dir r3.Vector, threshold float64) (Link, bool) {
	if dir.Norm() == 0 {
		return Link{}, false
	}
	dir = dir.Normalize()
	best := math.Inf(1)
	var hit Link
	found := false
	for _, l := range ls {
		if l.Index >= store.Len() {
			continue
		}
		along, off := rayDistance(origin, dir, store.At(l.Index).Position)
		if along < 0 || off > threshold || along >= best {
			continue
		}
		best, hit, found = along, l, true
	}
	return hit, found
}

// PickPoint returns the index of the point nearest to the origin among those whose displayed
// position lies within threshold of the ray.
func PickPoint(store *pointcloud.Store, origin, dir r3.Vector, threshold float64) (int, bool) {
	if dir.Norm() == 0 {
		return 0, false
	}
	dir = dir.Normalize()
	best := math.Inf(1)
	hit := -1
	store.Iterate(func(i int, p *pointcloud.Point) bool {
		along, off := rayDistance(origin, dir, p.Position)
		if along >= 0 && off <= threshold && along < best {
			best, hit = along, i
		}
		return true
	})
	return hit, hit >= 0
}
