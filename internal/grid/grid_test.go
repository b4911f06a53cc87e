package grid

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/merdata/internal/grid/gridtest"
	"github.com/lox/merdata/internal/models"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20220101_PM25plus_vtas.nc")
	gridtest.WriteFile(t, path, gridtest.Fixture{
		Times:  []float64{0, 1},
		Lats:   []float64{-37.82, -37.80},
		Lons:   []float64{145.00, 145.05},
		Values: []float32{1, 2, 3, 4, 5, 6, 7, 8},
	})

	f, err := Load(path, DefaultNames)
	require.NoError(t, err)

	assert.Equal(t, "PM25", f.Variable)
	assert.Equal(t, [3]Axis{AxisTime, AxisLat, AxisLon}, f.Dims)
	assert.Equal(t, []float64{0, 1}, f.Times)
	assert.Equal(t, []float64{-37.82, -37.80}, f.Lats)
	assert.Equal(t, []float64{145.00, 145.05}, f.Lons)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, f.Values)
	assert.Equal(t, 32, f.ValueBits)
	assert.Equal(t, 64, f.CoordBits)
	assert.Equal(t, 8, f.Len())
}

func TestLoad_Float32Coords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.nc")
	gridtest.WriteFile(t, path, gridtest.Fixture{
		Times:         []float64{5},
		Lats:          []float64{-37.8},
		Lons:          []float64{145},
		Values:        []float32{12},
		Float32Coords: true,
	})

	f, err := Load(path, DefaultNames)
	require.NoError(t, err)
	assert.Equal(t, 32, f.CoordBits)
	assert.Equal(t, float64(float32(-37.8)), f.Lats[0])
}

func TestLoad_FillValueBecomesNaN(t *testing.T) {
	fill := float32(-999)
	path := filepath.Join(t.TempDir(), "grid.nc")
	gridtest.WriteFile(t, path, gridtest.Fixture{
		Times:     []float64{0},
		Lats:      []float64{-37.8},
		Lons:      []float64{145, 145.05},
		Values:    []float32{3.5, -999},
		FillValue: &fill,
	})

	f, err := Load(path, DefaultNames)
	require.NoError(t, err)
	assert.Equal(t, 3.5, f.Values[0])
	assert.True(t, math.IsNaN(f.Values[1]))
}

func TestLoad_NoTimeCoordinateUsesIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.nc")
	gridtest.WriteFile(t, path, gridtest.Fixture{
		Times:         []float64{0, 0, 0},
		Lats:          []float64{-37.8},
		Lons:          []float64{145},
		Values:        []float32{1, 2, 3},
		OmitTimeCoord: true,
	})

	f, err := Load(path, DefaultNames)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, f.Times)
}

func TestLoad_UnlimitedTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20220101_PM25plus_vtas.nc")
	gridtest.WriteFile(t, path, gridtest.Fixture{
		Times:         []float64{5, 24},
		Lats:          []float64{-37.82, -37.80},
		Lons:          []float64{145.0},
		Values:        []float32{9, 12, 1, 2},
		UnlimitedTime: true,
	})

	f, err := Load(path, DefaultNames)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 24}, f.Times)
	assert.Equal(t, []float64{-37.82, -37.80}, f.Lats)
	assert.Equal(t, []float64{9, 12, 1, 2}, f.Values)

	rows := Flatten(f, "20220101")
	require.Len(t, rows, 4)
	assert.Equal(t, 5, rows[1].Hour)
	assert.Equal(t, 12.0, rows[1].Value)
	assert.Equal(t, 24, rows[3].Hour)
}

func TestLoad_UnlimitedTimeWithoutRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.nc")
	gridtest.WriteFile(t, path, gridtest.Fixture{
		Times:         []float64{},
		Lats:          []float64{-37.8},
		Lons:          []float64{145.0},
		Values:        []float32{},
		UnlimitedTime: true,
	})

	_, err := Load(path, DefaultNames)
	assert.ErrorContains(t, err, "no records")
}

func TestLoad_MissingVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.nc")
	gridtest.WriteFile(t, path, gridtest.Fixture{
		Variable: "NO2",
		Times:    []float64{0},
		Lats:     []float64{-37.8},
		Lons:     []float64{145},
		Values:   []float32{1},
	})

	_, err := Load(path, DefaultNames)
	assert.ErrorIs(t, err, ErrMissingVariable)
}

func TestLoad_Unreadable(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.nc"), DefaultNames)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.nc")
	require.NoError(t, os.WriteFile(garbage, []byte("not a netcdf file"), 0o644))
	_, err = Load(garbage, DefaultNames)
	assert.Error(t, err)
}

func TestDateFromFileName(t *testing.T) {
	tests := map[string]string{
		"20220101_PM25plus_vtas.nc":             "20220101",
		"/data/grids/20220313_PM25plus_vtas.nc": "20220313",
		"nodate.nc":                             "nodate.nc",
		"_leading.nc":                           "",
	}
	for name, want := range tests {
		assert.Equal(t, want, DateFromFileName(name), name)
	}
}

func TestFlatten(t *testing.T) {
	f := &Field{
		Variable: "PM25",
		Dims:     [3]Axis{AxisTime, AxisLat, AxisLon},
		Times:    []float64{5, 24},
		Lats:     []float64{-37.82, -37.80},
		Lons:     []float64{145.0},
		Values:   []float64{9, 12, 0, 0},
	}

	got := Flatten(f, "20220101")
	assert.Equal(t, []models.Observation{
		{Value: 9, Date: "20220101", Hour: 5, Lat: -37.82, Lon: 145.0},
		{Value: 12, Date: "20220101", Hour: 5, Lat: -37.80, Lon: 145.0},
		{Value: 0, Date: "20220101", Hour: 24, Lat: -37.82, Lon: 145.0},
		{Value: 0, Date: "20220101", Hour: 24, Lat: -37.80, Lon: 145.0},
	}, got)
}

func TestFlatten_PermutedDimensions(t *testing.T) {
	// Stored as (lat, lon, time).
	f := &Field{
		Dims:   [3]Axis{AxisLat, AxisLon, AxisTime},
		Times:  []float64{0, 1},
		Lats:   []float64{-37.8},
		Lons:   []float64{145.0},
		Values: []float64{7, 8},
	}

	got := Flatten(f, "d")
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Hour)
	assert.Equal(t, 7.0, got[0].Value)
	assert.Equal(t, 1, got[1].Hour)
	assert.Equal(t, 8.0, got[1].Value)
}
