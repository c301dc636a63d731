package netcdf

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nTime  = 2
	nLevel = 3
	nRows  = 3
	nCols  = 4
)

// fill returns n values where element i is base+i.
func fill(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i)
	}
	return out
}

func writeFixture(t *testing.T) string {
	t.Helper()
	plane := nRows * nCols

	lat := make([]float64, 0, nTime*plane)
	lon := make([]float64, 0, nTime*plane)
	for ti := 0; ti < nTime; ti++ {
		for r := 0; r < nRows; r++ {
			for c := 0; c < nCols; c++ {
				lat = append(lat, 30+float64(r)+float64(ti)*0.5)
				lon = append(lon, -100+float64(c))
			}
		}
	}

	masked := fill(plane, 0)
	masked[5] = -9999

	path := filepath.Join(t.TempDir(), "wrfout_d01.nc")
	err := Write(path, Dataset{
		Dimensions: []Dimension{
			{Name: "Time", Length: nTime},
			{Name: "bottom_top", Length: nLevel},
			{Name: "south_north", Length: nRows},
			{Name: "west_east", Length: nCols},
			{Name: "west_east_stag", Length: nCols + 1},
		},
		Variables: []Variable{
			{Name: "XLAT", Dims: []string{"Time", "south_north", "west_east"}, Data: lat},
			{Name: "XLONG", Dims: []string{"Time", "south_north", "west_east"}, Data: lon},
			{Name: "XLAT_U", Dims: []string{"Time", "south_north", "west_east_stag"}, Data: fill(nTime*nRows*(nCols+1), 0)},
			{Name: "T2", Dims: []string{"Time", "south_north", "west_east"}, Data: fill(nTime*plane, 280)},
			{Name: "QVAPOR", Dims: []string{"Time", "bottom_top", "south_north", "west_east"}, Data: fill(nTime*nLevel*plane, 0)},
			{Name: "HGT", Dims: []string{"south_north", "west_east"}, Data: fill(plane, 1000)},
			{
				Name:       "MASKED",
				Dims:       []string{"south_north", "west_east"},
				Data:       masked,
				Attributes: map[string]any{"_FillValue": []float32{-9999}, "units": "K"},
			},
		},
		Attributes: map[string]any{"TITLE": "OUTPUT FROM WRF V4.5 MODEL"},
	})
	require.NoError(t, err)
	return path
}

func newTestSource() *Source {
	return NewSource("", "", slog.Default())
}

func TestLoadGrid_Surface(t *testing.T) {
	path := writeFixture(t)

	g, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "T2"})
	require.NoError(t, err)

	assert.Equal(t, []int{nRows, nCols}, g.Shape())
	assert.Equal(t, 280.0, g.Value(0, 0))
	assert.Equal(t, 291.0, g.Value(2, 3))
	assert.Equal(t, 30.0, g.Lat(0, 0))
	assert.Equal(t, 32.0, g.Lat(2, 0))
	assert.Equal(t, -97.0, g.Lon(1, 3))
}

func TestLoadGrid_TimeIndex(t *testing.T) {
	path := writeFixture(t)

	g, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "T2", TimeIndex: 1})
	require.NoError(t, err)

	assert.Equal(t, 292.0, g.Value(0, 0))
	assert.Equal(t, 30.5, g.Lat(0, 0), "coordinates follow the requested time step")
}

func TestLoadGrid_VerticalLevel(t *testing.T) {
	path := writeFixture(t)
	plane := float64(nRows * nCols)

	tests := []struct {
		name  string
		time  int
		level int
		first float64
	}{
		{"first level", 0, 0, 0},
		{"second level", 0, 1, plane},
		{"top level second time", 1, 2, (1*nLevel + 2) * plane},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{
				Path: path, Variable: "QVAPOR", TimeIndex: tt.time, ZLevel: tt.level,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.first, g.Value(0, 0))
			assert.Equal(t, tt.first+plane-1, g.Value(nRows-1, nCols-1))
		})
	}
}

func TestLoadGrid_TwoDimensionalVariable(t *testing.T) {
	path := writeFixture(t)

	g, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "HGT"})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, g.Value(0, 0))
}

func TestLoadGrid_FillValueBecomesNaN(t *testing.T) {
	path := writeFixture(t)

	g, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "MASKED"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(g.Value(1, 1)))
	assert.Equal(t, 4.0, g.Value(1, 0))
}

func TestLoadGrid_Errors(t *testing.T) {
	path := writeFixture(t)

	t.Run("missing variable", func(t *testing.T) {
		_, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "RAINNC"})
		var missing *domain.MissingVariableError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "RAINNC", missing.Variable)
		assert.Equal(t, path, missing.Source)
	})

	t.Run("level out of range", func(t *testing.T) {
		_, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "QVAPOR", ZLevel: nLevel})
		var idx *domain.IndexOutOfRangeError
		require.True(t, errors.As(err, &idx))
		assert.Equal(t, "level", idx.Axis)
		assert.Equal(t, nLevel, idx.Index)
		assert.Equal(t, nLevel, idx.Extent)
	})

	t.Run("level on a surface variable", func(t *testing.T) {
		_, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "T2", ZLevel: 1})
		var idx *domain.IndexOutOfRangeError
		require.True(t, errors.As(err, &idx))
		assert.Equal(t, 1, idx.Extent)
	})

	t.Run("time out of range", func(t *testing.T) {
		_, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "T2", TimeIndex: 5})
		var idx *domain.IndexOutOfRangeError
		require.True(t, errors.As(err, &idx))
		assert.Equal(t, "time", idx.Axis)
	})

	t.Run("coordinate shape mismatch", func(t *testing.T) {
		src := NewSource("XLAT_U", "XLONG", slog.Default())
		_, err := src.LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "T2"})
		var shape *domain.ShapeMismatchError
		require.True(t, errors.As(err, &shape))
		assert.Equal(t, "XLAT_U", shape.Name)
		assert.Equal(t, []int{nRows, nCols}, shape.Expected)
		assert.Equal(t, []int{nRows, nCols + 1}, shape.Actual)
	})

	t.Run("missing coordinate", func(t *testing.T) {
		src := NewSource("LAT", "LON", slog.Default())
		_, err := src.LoadGrid(context.Background(), domain.SliceRequest{Path: path, Variable: "T2"})
		var missing *domain.MissingVariableError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "LAT", missing.Variable)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := newTestSource().LoadGrid(context.Background(), domain.SliceRequest{Path: filepath.Join(t.TempDir(), "nope.nc"), Variable: "T2"})
		require.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestSource().LoadGrid(ctx, domain.SliceRequest{Path: path, Variable: "T2"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWrite_RejectsBadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.nc")

	err := Write(path, Dataset{
		Dimensions: []Dimension{{Name: "x", Length: 3}},
		Variables:  []Variable{{Name: "v", Dims: []string{"x"}, Data: []float64{1, 2}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array length")

	err = Write(path, Dataset{
		Dimensions: []Dimension{{Name: "x", Length: 3}},
		Variables:  []Variable{{Name: "v", Dims: []string{"y"}, Data: []float64{1, 2, 3}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dimension")
}
