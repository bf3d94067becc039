package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/pointwalk/pointwalk/logging"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

// float64 cannot represent integers outside of this range exactly.
const (
	maxPreciseFloat64 = float64(1 << 53)
	minPreciseFloat64 = -maxPreciseFloat64
)

// ReadFile returns the raw points of a CSV, LAS or PCD file, picked by extension.
func ReadFile(fn string, logger logging.Logger) ([]r3.Vector, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".csv":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		return ReadCSV(f)
	case ".las":
		return ReadLASFile(fn, logger)
	case ".pcd":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		positions, _, err := ReadPCD(f)
		return positions, err
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// ReadCSV parses "x,y,z" rows. The first line is a header and is skipped, as are blank lines.
// Fields that do not parse, and fields missing from short rows, become NaN.
func ReadCSV(r io.Reader) ([]r3.Vector, error) {
	scanner := bufio.NewScanner(r)
	var out []r3.Vector
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		out = append(out, r3.Vector{
			X: csvField(fields, 0),
			Y: csvField(fields, 1),
			Z: csvField(fields, 2),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	return out, nil
}

func csvField(fields []string, i int) float64 {
	if i >= len(fields) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ReadLASFile returns the raw points of a LAS file. If any lossiness of points could occur from
// reading it in, it's reported but is not an error.
func ReadLASFile(fn string, logger logging.Logger) ([]r3.Vector, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	out := make([]r3.Vector, 0, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, errors.Wrapf(err, "reading LAS point %d", i)
		}
		data := p.PointData()

		x, y, z := data.X, data.Y, data.Z
		if x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64 {
			logger.Warnw("potential floating point lossiness for LAS point",
				"index", i, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
		}
		out = append(out, r3.Vector{X: x, Y: y, Z: z})
	}
	return out, nil
}

// WriteToLASFile writes the displayed positions and colors of the store out to a LAS file.
func WriteToLASFile(store *Store, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{PointFormatID: 2}); err != nil {
		return
	}

	var lastErr error
	store.Iterate(func(_ int, p *Point) bool {
		r, g, b := safeRGB255(p.Color)
		lp := &lidario.PointRecord2{
			PointRecord0: &lidario.PointRecord0{
				X: p.Position.X,
				Y: p.Position.Y,
				Z: p.Position.Z,
				BitField: lidario.PointBitField{
					Value: (1) | (1 << 3),
				},
				PointSourceID: 1,
			},
			RGB: &lidario.RgbData{
				Red:   uint16(r) * 256,
				Green: uint16(g) * 256,
				Blue:  uint16(b) * 256,
			},
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = lastErr
	}
	return
}

// safeRGB255 is RGB255 with NaN channels treated as black.
func safeRGB255(c colorful.Color) (uint8, uint8, uint8) {
	if math.IsNaN(c.R) || math.IsNaN(c.G) || math.IsNaN(c.B) {
		return 0, 0, 0
	}
	return c.Clamped().RGB255()
}

func colorToPCDInt(c colorful.Color) int {
	r, g, b := safeRGB255(c)
	return int(r)<<16 | int(g)<<8 | int(b)
}

func pcdIntToColor(c int) colorful.Color {
	return colorful.Color{
		R: float64(0xFF&(c>>16)) / 255,
		G: float64(0xFF&(c>>8)) / 255,
		B: float64(0xFF&c) / 255,
	}
}

// ToPCD writes the displayed positions and colors of the store as a pcd file in scene units.
func ToPCD(store *Store, out io.Writer, outputType PCDType) error {
	var data string
	switch outputType {
	case PCDAscii:
		data = "ascii"
	case PCDBinary:
		data = "binary"
	default:
		return errors.Errorf("unsupported pcd output type %d", outputType)
	}
	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z rgb\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F I\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		store.Len(), store.Len(), data); err != nil {
		return err
	}

	var err error
	buf := make([]byte, 16)
	store.Iterate(func(_ int, p *Point) bool {
		c := colorToPCDInt(p.Color)
		switch outputType {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.Position.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Position.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Position.Z)))
			binary.LittleEndian.PutUint32(buf[12:], uint32(c))
			_, err = out.Write(buf)
		case PCDAscii:
			_, err = fmt.Fprintf(out, "%f %f %f %d\n", p.Position.X, p.Position.Y, p.Position.Z, c)
		}
		return err == nil
	})
	return err
}

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

const maxPCDPreallocate = 1 << 20

type pcdHeader struct {
	hasColor bool
	points   int
	data     PCDType
}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch value {
		case "x y z":
		case "x y z rgb":
			header.hasColor = true
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "POINTS":
		points, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if points < 0 {
			return errors.Errorf("negative POINTS field %d", points)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}
	return nil
}

// ReadPCD reads back the positions and colors of an uncompressed pcd file with x y z and optional
// rgb fields. Points without color are white.
func ReadPCD(inRaw io.Reader) ([]r3.Vector, []colorful.Color, error) {
	var header pcdHeader
	in := bufio.NewReader(inRaw)
	for count := 0; count < len(pcdHeaderFields); {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error reading header line %d", count)
		}
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, count, &header); err != nil {
			return nil, nil, err
		}
		count++
	}

	fields := 3
	if header.hasColor {
		fields = 4
	}
	// POINTS is only a hint until the points are actually read
	capacity := min(header.points, maxPCDPreallocate)
	positions := make([]r3.Vector, 0, capacity)
	colors := make([]colorful.Color, 0, capacity)
	raw := make([]float64, fields)
	buf := make([]byte, 4)
	for i := 0; i < header.points; i++ {
		switch header.data {
		case PCDAscii:
			line, err := in.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				return nil, nil, errors.Wrapf(err, "reading point %d", i)
			}
			tokens := strings.Fields(line)
			if len(tokens) != fields {
				return nil, nil, errors.Errorf("unexpected number of fields in point %d", i)
			}
			for j, token := range tokens {
				if raw[j], err = strconv.ParseFloat(token, 64); err != nil {
					return nil, nil, errors.Wrapf(err, "invalid point %d field %s", i, token)
				}
			}
		case PCDBinary:
			for j := 0; j < fields; j++ {
				if _, err := io.ReadFull(in, buf); err != nil {
					return nil, nil, errors.Wrapf(err, "reading point %d", i)
				}
				bits := binary.LittleEndian.Uint32(buf)
				if j == 3 {
					raw[j] = float64(bits)
				} else {
					raw[j] = float64(math.Float32frombits(bits))
				}
			}
		}
		positions = append(positions, r3.Vector{X: raw[0], Y: raw[1], Z: raw[2]})
		c := colorful.Color{R: 1, G: 1, B: 1}
		if header.hasColor {
			c = pcdIntToColor(int(raw[3]))
		}
		colors = append(colors, c)
	}
	return positions, colors, nil
}
