package displacement

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"go.viam.com/test"

	"github.com/pointwalk/pointwalk/pointcloud"
)

func threePoints() *pointcloud.Store {
	return pointcloud.NewStore("three", []r3.Vector{
		pointcloud.NewVector(0, 0, 0),
		pointcloud.NewVector(5, 0, 0),
		pointcloud.NewVector(100, 0, 0),
	}, []colorful.Color{{R: 1}, {R: 1}, {R: 1}})
}

func TestUpdateThreePoints(t *testing.T) {
	store := threePoints()
	stats := Update(store, r3.Vector{}, 10, pointcloud.TouchedByHuman)
	test.That(t, stats, test.ShouldResemble, Stats{Displaced: 2, NewlyTouched: 2})

	// coincident with the viewer: pushed straight up
	test.That(t, store.At(0).Position, test.ShouldResemble, pointcloud.NewVector(0, 10, 0))
	test.That(t, store.At(1).Position, test.ShouldResemble, pointcloud.NewVector(10, 0, 0))
	test.That(t, store.At(2).Position, test.ShouldResemble, store.At(2).Original)

	test.That(t, store.At(0).TouchedBy, test.ShouldEqual, pointcloud.TouchedByHuman)
	test.That(t, store.At(1).TouchedBy, test.ShouldEqual, pointcloud.TouchedByHuman)
	test.That(t, store.At(2).TouchedBy, test.ShouldEqual, pointcloud.TouchedByNone)

	test.That(t, store.At(1).Color, test.ShouldResemble, colorful.Color{R: 1, G: 0.5, B: 0.5})
	test.That(t, store.At(2).Color, test.ShouldResemble, colorful.Color{R: 1})
	test.That(t, store.At(0).Original, test.ShouldResemble, r3.Vector{})
	test.That(t, store.At(1).Original, test.ShouldResemble, pointcloud.NewVector(5, 0, 0))
	test.That(t, store.At(1).OriginalColor, test.ShouldResemble, colorful.Color{R: 1})
}

func TestUpdateOnSphere(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := make([]r3.Vector, 500)
	for i := range points {
		points[i] = pointcloud.NewVector(rng.Float64()*100-50, rng.Float64()*100-50, rng.Float64()*100-50)
	}
	store := pointcloud.NewStore("random", points, nil)
	viewer := pointcloud.NewVector(3, -2, 7)
	const radius = 30.

	Update(store, viewer, radius, pointcloud.TouchedByMouse)
	store.Iterate(func(_ int, p *pointcloud.Point) bool {
		if p.Original.Sub(viewer).Norm() >= radius {
			test.That(t, p.Position, test.ShouldResemble, p.Original)
			test.That(t, p.TouchedBy, test.ShouldEqual, pointcloud.TouchedByNone)
			return true
		}
		test.That(t, p.Position.Sub(viewer).Norm(), test.ShouldAlmostEqual, radius)
		// moved outward along the viewer to original direction
		test.That(t, p.Position.Sub(viewer).Normalize().Dot(p.Original.Sub(viewer).Normalize()),
			test.ShouldAlmostEqual, 1)
		test.That(t, p.TouchedBy, test.ShouldEqual, pointcloud.TouchedByMouse)
		return true
	})
}

func TestTouchIsMonotonic(t *testing.T) {
	store := threePoints()
	Update(store, r3.Vector{}, 10, pointcloud.TouchedByMouse)

	// move away; positions reset but the touch and tint stay
	stats := Update(store, pointcloud.NewVector(-500, 0, 0), 10, pointcloud.TouchedByMouse)
	test.That(t, stats, test.ShouldResemble, Stats{})
	tinted := colorful.Color{R: 1}.BlendRgb(colorful.Color{R: 0x80 / 255., G: 0x80 / 255., B: 0x80 / 255.}, TintWeight)
	for i := 0; i < 2; i++ {
		p := store.At(i)
		test.That(t, p.Position, test.ShouldResemble, p.Original)
		test.That(t, p.TouchedBy, test.ShouldEqual, pointcloud.TouchedByMouse)
		test.That(t, p.Color, test.ShouldResemble, tinted)
	}

	// the first toucher wins and the tint never compounds
	stats = Update(store, r3.Vector{}, 10, pointcloud.TouchedByOwl)
	test.That(t, stats, test.ShouldResemble, Stats{Displaced: 2})
	test.That(t, store.At(1).TouchedBy, test.ShouldEqual, pointcloud.TouchedByMouse)
	test.That(t, store.At(1).Color, test.ShouldResemble, tinted)

	stats = Update(store, pointcloud.NewVector(100, 0, 0), 10, pointcloud.TouchedByOwl)
	test.That(t, stats.NewlyTouched, test.ShouldEqual, 1)
	test.That(t, store.At(2).TouchedBy, test.ShouldEqual, pointcloud.TouchedByOwl)
}

func TestUpdateNonPositiveRadius(t *testing.T) {
	for _, radius := range []float64{0, -5} {
		store := threePoints()
		store.At(1).Position = pointcloud.NewVector(9, 9, 9)
		stats := Update(store, r3.Vector{}, radius, pointcloud.TouchedByHuman)
		test.That(t, stats, test.ShouldResemble, Stats{})
		for i := 0; i < store.Len(); i++ {
			test.That(t, store.At(i).Position, test.ShouldResemble, store.At(i).Original)
			test.That(t, store.At(i).TouchedBy, test.ShouldEqual, pointcloud.TouchedByNone)
		}
	}
}

func TestUpdateWithoutStore(t *testing.T) {
	test.That(t, Update(nil, r3.Vector{}, 10, pointcloud.TouchedByHuman), test.ShouldResemble, Stats{})
	empty := pointcloud.NewStore("empty", nil, nil)
	test.That(t, Update(empty, r3.Vector{}, 10, pointcloud.TouchedByHuman), test.ShouldResemble, Stats{})
}

func TestTint(t *testing.T) {
	_, ok := Tint(pointcloud.TouchedByNone)
	test.That(t, ok, test.ShouldBeFalse)
	for _, by := range []pointcloud.Toucher{pointcloud.TouchedByMouse, pointcloud.TouchedByOwl, pointcloud.TouchedByHuman} {
		_, ok := Tint(by)
		test.That(t, ok, test.ShouldBeTrue)
	}
	owl, _ := Tint(pointcloud.TouchedByOwl)
	test.That(t, owl.Hex(), test.ShouldEqual, "#ff6600")
}
