// Package gridtest writes small netCDF fixtures for tests.
package gridtest

import (
	"os"
	"testing"

	"github.com/ctessum/cdf"
)

// Fixture describes a test grid. Values are time-major: Values[(t*len(Lats)+y)*len(Lons)+x].
type Fixture struct {
	Variable      string
	Times         []float64
	Lats          []float64
	Lons          []float64
	Values        []float32
	FillValue     *float32
	Float32Coords bool
	OmitTimeCoord bool
	UnlimitedTime bool // declare time as the record dimension
}

// WriteFile writes fx to path as a netCDF classic file with dimensions
// (time, lat, lon) and matching coordinate variables.
func WriteFile(t *testing.T, path string, fx Fixture) {
	t.Helper()

	if fx.Variable == "" {
		fx.Variable = "PM25"
	}
	if n := len(fx.Times) * len(fx.Lats) * len(fx.Lons); n != len(fx.Values) {
		t.Fatalf("gridtest: %d values for a %d-cell grid", len(fx.Values), n)
	}

	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("gridtest: create %s: %v", path, err)
	}
	defer fh.Close()

	nt := len(fx.Times)
	if fx.UnlimitedTime {
		nt = 0
	}
	h := cdf.NewHeader(
		[]string{"time", "lat", "lon"},
		[]int{nt, len(fx.Lats), len(fx.Lons)})
	h.AddAttribute("", "comment", "merdata test fixture")
	if !fx.OmitTimeCoord {
		h.AddVariable("time", []string{"time"}, []float64{0})
	}
	if fx.Float32Coords {
		h.AddVariable("lat", []string{"lat"}, []float32{0})
		h.AddVariable("lon", []string{"lon"}, []float32{0})
	} else {
		h.AddVariable("lat", []string{"lat"}, []float64{0})
		h.AddVariable("lon", []string{"lon"}, []float64{0})
	}
	h.AddVariable(fx.Variable, []string{"time", "lat", "lon"}, []float32{0})
	if fx.FillValue != nil {
		h.AddAttribute(fx.Variable, "_FillValue", []float32{*fx.FillValue})
	}
	h.Define()

	f, err := cdf.Create(fh, h)
	if err != nil {
		t.Fatalf("gridtest: create header: %v", err)
	}

	if !fx.OmitTimeCoord {
		write(t, f, "time", fx.Times)
	}
	if fx.Float32Coords {
		write(t, f, "lat", to32(fx.Lats))
		write(t, f, "lon", to32(fx.Lons))
	} else {
		write(t, f, "lat", fx.Lats)
		write(t, f, "lon", fx.Lons)
	}
	write(t, f, fx.Variable, fx.Values)

	if err := cdf.UpdateNumRecs(fh); err != nil {
		t.Fatalf("gridtest: update numrecs: %v", err)
	}
}

func write(t *testing.T, f *cdf.File, name string, data interface{}) {
	t.Helper()
	w := f.Writer(name, nil, nil)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gridtest: write %s: %v", name, err)
	}
}

func to32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
