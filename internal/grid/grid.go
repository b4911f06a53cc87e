// Package grid reads gridded (time, lat, lon) fields from netCDF classic
// files and flattens them into one observation per grid cell and time step.
package grid

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ctessum/cdf"

	"github.com/lox/merdata/internal/models"
)

var ErrMissingVariable = errors.New("grid: variable not found")

// Names identifies the measured variable and its coordinate dimensions.
type Names struct {
	Variable string
	Time     string
	Lat      string
	Lon      string
}

// DefaultNames matches the PM2.5 forecast exports.
var DefaultNames = Names{Variable: "PM25", Time: "time", Lat: "lat", Lon: "lon"}

// Field is one variable decoded from a gridded file. Values are laid out in
// the variable's own dimension order; Dims gives that order as axis roles.
type Field struct {
	Variable string
	Dims     [3]Axis
	Times    []float64
	Lats     []float64
	Lons     []float64
	Values   []float64

	ValueBits int // 32 or 64, precision of the stored values
	CoordBits int // 32 or 64, precision of lat/lon coordinates
}

// Axis is the role a dimension plays in a Field.
type Axis int

const (
	AxisTime Axis = iota
	AxisLat
	AxisLon
)

func (f *Field) axis(a Axis) []float64 {
	switch a {
	case AxisTime:
		return f.Times
	case AxisLat:
		return f.Lats
	default:
		return f.Lons
	}
}

// Len is the number of grid observations in the field.
func (f *Field) Len() int {
	return len(f.Times) * len(f.Lats) * len(f.Lons)
}

// Load opens the netCDF file at path and decodes the variable named in
// names. Fill values become NaN and scale_factor/add_offset are applied.
func Load(path string, names Names) (*Field, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid: open %s: %w", path, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("grid: stat %s: %w", path, err)
	}

	nc, err := cdf.Open(fh)
	if err != nil {
		return nil, fmt.Errorf("grid: parse %s: %w", path, err)
	}

	field, err := decode(nc, names, nc.Header.NumRecs(info.Size()))
	if err != nil {
		return nil, fmt.Errorf("grid: %s: %w", filepath.Base(path), err)
	}
	return field, nil
}

// decode reads the variable and its coordinates. numRecs is the number of
// records on the unlimited dimension, if the file has one.
func decode(nc *cdf.File, names Names, numRecs int64) (*Field, error) {
	if !hasVariable(nc, names.Variable) {
		return nil, fmt.Errorf("%w: %q", ErrMissingVariable, names.Variable)
	}

	dims := nc.Header.Dimensions(names.Variable)
	lengths, err := shape(nc, names.Variable, numRecs)
	if err != nil {
		return nil, err
	}
	if len(dims) != 3 || len(lengths) != 3 {
		return nil, fmt.Errorf("variable %q has dimensions %v, want (%s, %s, %s)",
			names.Variable, dims, names.Time, names.Lat, names.Lon)
	}

	field := &Field{Variable: names.Variable}
	coordBits := map[Axis]int{}
	seen := map[Axis]bool{}
	for i, d := range dims {
		var a Axis
		switch d {
		case names.Time:
			a = AxisTime
		case names.Lat:
			a = AxisLat
		case names.Lon:
			a = AxisLon
		default:
			return nil, fmt.Errorf("variable %q: unexpected dimension %q", names.Variable, d)
		}
		if seen[a] {
			return nil, fmt.Errorf("variable %q: dimension %q repeated", names.Variable, d)
		}
		seen[a] = true
		field.Dims[i] = a

		coords, bits, err := coordinate(nc, d, lengths[i], numRecs)
		if err != nil {
			return nil, err
		}
		coordBits[a] = bits
		switch a {
		case AxisTime:
			field.Times = coords
		case AxisLat:
			field.Lats = coords
		case AxisLon:
			field.Lons = coords
		}
	}
	field.CoordBits = 64
	if coordBits[AxisLat] == 32 && coordBits[AxisLon] == 32 {
		field.CoordBits = 32
	}

	values, bits, err := readFloats(nc, names.Variable, lengths)
	if err != nil {
		return nil, err
	}
	field.ValueBits = bits
	if maskAndScale(nc, names.Variable, values) {
		field.ValueBits = 64
	}
	field.Values = values
	return field, nil
}

// coordinate returns the values of the coordinate variable for dim, or the
// positional index when the file has no such variable.
func coordinate(nc *cdf.File, dim string, n int, numRecs int64) ([]float64, int, error) {
	if !hasVariable(nc, dim) {
		idx := make([]float64, n)
		for i := range idx {
			idx[i] = float64(i)
		}
		return idx, 64, nil
	}
	l, err := shape(nc, dim, numRecs)
	if err != nil {
		return nil, 0, err
	}
	if len(l) != 1 || l[0] != n {
		return nil, 0, fmt.Errorf("coordinate %q has shape %v, want [%d]", dim, l, n)
	}
	return readFloats(nc, dim, l)
}

// shape returns the dimension lengths of a variable. The header reports
// the unlimited dimension as 0; it is replaced by the record count.
func shape(nc *cdf.File, name string, numRecs int64) ([]int, error) {
	lengths := slices.Clone(nc.Header.Lengths(name))
	if !nc.Header.IsRecordVariable(name) {
		return lengths, nil
	}
	if numRecs <= 0 {
		return nil, fmt.Errorf("variable %q: unlimited dimension has no records", name)
	}
	lengths[0] = int(numRecs)
	return lengths, nil
}

func hasVariable(nc *cdf.File, name string) bool {
	for _, v := range nc.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// readFloats reads the whole variable. The end corner is always explicit:
// without one a record variable reads on to the end of the file.
func readFloats(nc *cdf.File, name string, lengths []int) ([]float64, int, error) {
	n := 1
	end := make([]int, len(lengths))
	for i, l := range lengths {
		if l == 0 {
			return nil, 0, fmt.Errorf("read %q: empty dimension in shape %v", name, lengths)
		}
		n *= l
		end[i] = l - 1
	}

	r := nc.Reader(name, nil, end)
	buf := r.Zero(n)
	got, err := r.Read(buf)
	if err != nil && !(errors.Is(err, io.EOF) && got == n) {
		return nil, 0, fmt.Errorf("read %q: %w", name, err)
	}
	if got != n {
		return nil, 0, fmt.Errorf("read %q: got %d values, want %d", name, got, n)
	}

	out := make([]float64, n)
	bits := 64
	switch v := buf.(type) {
	case []float64:
		copy(out, v)
	case []float32:
		bits = 32
		for i, x := range v {
			out[i] = float64(x)
		}
	case []int32:
		for i, x := range v {
			out[i] = float64(x)
		}
	case []int16:
		for i, x := range v {
			out[i] = float64(x)
		}
	case []int8:
		for i, x := range v {
			out[i] = float64(x)
		}
	case []uint8:
		for i, x := range v {
			out[i] = float64(x)
		}
	default:
		return nil, 0, fmt.Errorf("read %q: unsupported type %T", name, buf)
	}
	return out, bits, nil
}

// maskAndScale replaces fill values with NaN and applies the packing
// attributes in place. It reports whether values were rescaled.
func maskAndScale(nc *cdf.File, name string, values []float64) bool {
	for _, attr := range []string{"_FillValue", "missing_value"} {
		if fill, ok := attrFloat(nc, name, attr); ok {
			for i, v := range values {
				if v == fill {
					values[i] = math.NaN()
				}
			}
		}
	}

	scale, hasScale := attrFloat(nc, name, "scale_factor")
	offset, hasOffset := attrFloat(nc, name, "add_offset")
	if !hasScale && !hasOffset {
		return false
	}
	if !hasScale {
		scale = 1
	}
	for i, v := range values {
		values[i] = v*scale + offset
	}
	return true
}

func attrFloat(nc *cdf.File, v, a string) (float64, bool) {
	switch x := nc.Header.GetAttribute(v, a).(type) {
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int8:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

// DateFromFileName returns the leading '_'-separated token of a file name,
// e.g. "20220101" for "20220101_PM25plus_vtas.nc".
func DateFromFileName(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '_'); i >= 0 {
		return base[:i]
	}
	return base
}

// Flatten expands the field into one observation per (time, lat, lon),
// in the variable's storage order, each tagged with date. The hour is the
// time coordinate truncated to an integer.
func Flatten(f *Field, date string) []models.Observation {
	n0 := len(f.axis(f.Dims[0]))
	n1 := len(f.axis(f.Dims[1]))
	n2 := len(f.axis(f.Dims[2]))

	rows := make([]models.Observation, 0, n0*n1*n2)
	var idx [3]int
	for idx[0] = 0; idx[0] < n0; idx[0]++ {
		for idx[1] = 0; idx[1] < n1; idx[1]++ {
			for idx[2] = 0; idx[2] < n2; idx[2]++ {
				obs := models.Observation{
					Value: f.Values[(idx[0]*n1+idx[1])*n2+idx[2]],
					Date:  date,
				}
				for d, a := range f.Dims {
					c := f.axis(a)[idx[d]]
					switch a {
					case AxisTime:
						obs.Hour = int(c)
					case AxisLat:
						obs.Lat = c
					case AxisLon:
						obs.Lon = c
					}
				}
				rows = append(rows, obs)
			}
		}
	}
	return rows
}
