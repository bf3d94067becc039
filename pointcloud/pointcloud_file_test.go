package pointcloud

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"go.viam.com/test"

	"github.com/pointwalk/pointwalk/logging"
)

func TestReadCSV(t *testing.T) {
	in := "x,y,z\n" +
		"1,2,3\n" +
		" 4.5 , -6 ,7e2\n" +
		"abc,2,3\n" +
		"\n" +
		"8,9\n" +
		"\n"
	points, err := ReadCSV(strings.NewReader(in))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, points, test.ShouldHaveLength, 4)
	test.That(t, points[0], test.ShouldResemble, NewVector(1, 2, 3))
	test.That(t, points[1], test.ShouldResemble, NewVector(4.5, -6, 700))
	test.That(t, math.IsNaN(points[2].X), test.ShouldBeTrue)
	test.That(t, points[2].Y, test.ShouldEqual, 2)
	test.That(t, points[3].Y, test.ShouldEqual, 9)
	test.That(t, math.IsNaN(points[3].Z), test.ShouldBeTrue)

	points, err = ReadCSV(strings.NewReader("x,y,z\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, points, test.ShouldBeEmpty)
}

func TestReadFile(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "park.csv")
	test.That(t, os.WriteFile(csvPath, []byte("x,y,z\n1,2,3\n"), 0o600), test.ShouldBeNil)
	points, err := ReadFile(csvPath, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, points, test.ShouldResemble, []r3.Vector{NewVector(1, 2, 3)})

	_, err = ReadFile(filepath.Join(dir, "park.xyz"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to read")

	_, err = ReadFile(filepath.Join(dir, "missing.csv"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func displacedStore() *Store {
	store := NewStore("export", []r3.Vector{
		NewVector(0, 0, 0),
		NewVector(10, 20, 30),
		NewVector(-5, 7, 1),
	}, []colorful.Color{{R: 1}, {G: 1}, {B: 1}})
	store.At(1).Position = NewVector(11, 21, 31)
	return store
}

func TestPCDRoundTrip(t *testing.T) {
	for _, outputType := range []PCDType{PCDAscii, PCDBinary} {
		store := displacedStore()
		var buf bytes.Buffer
		test.That(t, ToPCD(store, &buf, outputType), test.ShouldBeNil)

		positions, colors, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, positions, test.ShouldHaveLength, 3)
		test.That(t, colors, test.ShouldHaveLength, 3)
		for i, pos := range positions {
			want := store.At(i).Position
			test.That(t, pos.X, test.ShouldAlmostEqual, want.X, 1e-4)
			test.That(t, pos.Y, test.ShouldAlmostEqual, want.Y, 1e-4)
			test.That(t, pos.Z, test.ShouldAlmostEqual, want.Z, 1e-4)
			test.That(t, colors[i], test.ShouldResemble, store.At(i).Color)
		}
	}

	test.That(t, ToPCD(displacedStore(), &bytes.Buffer{}, PCDType(7)), test.ShouldNotBeNil)
}

func TestReadPCDErrors(t *testing.T) {
	_, _, err := ReadPCD(strings.NewReader("VERSION .5\n"))
	test.That(t, err, test.ShouldNotBeNil)

	_, _, err = ReadPCD(strings.NewReader("VERSION .7\nFIELDS x y z normal\n"))
	test.That(t, err, test.ShouldNotBeNil)

	header := "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n" +
		"WIDTH 2\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS 2\nDATA ascii\n"
	positions, colors, err := ReadPCD(strings.NewReader(header + "1 2 3\n4 5 6"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, positions, test.ShouldResemble, []r3.Vector{NewVector(1, 2, 3), NewVector(4, 5, 6)})
	test.That(t, colors[1], test.ShouldResemble, colorful.Color{R: 1, G: 1, B: 1})

	_, _, err = ReadPCD(strings.NewReader(header + "1 2 3\n"))
	test.That(t, err, test.ShouldNotBeNil)

	negative := strings.Replace(header, "POINTS 2", "POINTS -1", 1)
	_, _, err = ReadPCD(strings.NewReader(negative + "1 2 3\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "negative POINTS")

	// a huge count fails on the missing data instead of allocating up front
	huge := strings.Replace(header, "POINTS 2", "POINTS 4000000000000", 1)
	_, _, err = ReadPCD(strings.NewReader(huge + "1 2 3\n4 5 6\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading point 2")
}

func TestLASRoundTrip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	fn := filepath.Join(t.TempDir(), "export.las")

	store := displacedStore()
	test.That(t, WriteToLASFile(store, fn), test.ShouldBeNil)

	points, err := ReadFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, points, test.ShouldHaveLength, 3)
	for i, p := range points {
		want := store.At(i).Position
		test.That(t, p.X, test.ShouldAlmostEqual, want.X, 0.01)
		test.That(t, p.Y, test.ShouldAlmostEqual, want.Y, 0.01)
		test.That(t, p.Z, test.ShouldAlmostEqual, want.Z, 0.01)
	}
}
