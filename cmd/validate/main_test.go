package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/wrf-geojson/internal/adapter/netcdf"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, size float64) [][2]float64 {
	return [][2]float64{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0}}
}

func feature(fill string, rings ...[][2]float64) domain.Feature {
	return domain.NewFeature(domain.GeoPolygon(rings), fill)
}

func collection(features ...domain.Feature) *domain.FeatureCollection {
	fc := domain.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	return fc
}

func TestValidateStructure(t *testing.T) {
	good := feature("#440154", square(0, 0, 1))
	assert.True(t, validateStructure(collection(good)).passed())

	bad := feature("purple", square(0, 0, 1))
	bad.Geometry.Type = "Polygon"
	bad.Properties.FillOpacity = 2
	p := validateStructure(&domain.FeatureCollection{Type: "Feature", Features: []domain.Feature{bad}})
	assert.Len(t, p.errors, 4)
}

func TestValidateRings(t *testing.T) {
	open := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	flat := [][2]float64{{0, 0}, {1, 0}, {2, 0}, {0, 0}}
	short := [][2]float64{{0, 0}, {1, 1}, {0, 0}}

	assert.True(t, validateRings(collection(feature("#440154", square(0, 0, 1)))).passed())

	p := validateRings(collection(
		feature("#440154", open),
		feature("#440154", flat),
		feature("#440154", short),
	))
	assert.Len(t, p.errors, 3)
}

func TestValidateHoles(t *testing.T) {
	inside := feature("#440154", square(0, 0, 4), square(1, 1, 1))
	outside := feature("#440154", square(0, 0, 4), square(5, 5, 1))

	assert.True(t, validateHoles(collection(inside)).passed())
	assert.False(t, validateHoles(collection(outside)).passed())
}

func TestValidateBandOrder(t *testing.T) {
	a, b := "#440154", "#fde725"
	ordered := collection(feature(a, square(0, 0, 1)), feature(a, square(2, 0, 1)), feature(b, square(4, 0, 1)))
	interleaved := collection(feature(a, square(0, 0, 1)), feature(b, square(2, 0, 1)), feature(a, square(4, 0, 1)))

	assert.True(t, validateBandOrder(ordered).passed())
	assert.Len(t, validateBandOrder(interleaved).errors, 1)
}

func writeSource(t *testing.T) string {
	t.Helper()
	const rows, cols = 4, 5
	var lat, lon, v []float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			lat = append(lat, 40+0.5*float64(r))
			lon = append(lon, -105+0.5*float64(c))
			v = append(v, float64((r-1)*(r-1)+(c-2)*(c-2)))
		}
	}
	path := filepath.Join(t.TempDir(), "wrfout.nc")
	require.NoError(t, netcdf.Write(path, netcdf.Dataset{
		Dimensions: []netcdf.Dimension{{Name: "south_north", Length: rows}, {Name: "west_east", Length: cols}},
		Variables: []netcdf.Variable{
			{Name: "XLAT", Dims: []string{"south_north", "west_east"}, Data: lat},
			{Name: "XLONG", Dims: []string{"south_north", "west_east"}, Data: lon},
			{Name: "PSFC", Dims: []string{"south_north", "west_east"}, Data: v},
		},
	}))
	return path
}

func TestSourcePhases(t *testing.T) {
	src := sourceOptions{
		path:     writeSource(t),
		variable: "PSFC",
		bands:    3,
		colormap: "viridis",
		latVar:   netcdf.DefaultLatVariable,
		lonVar:   netcdf.DefaultLonVariable,
	}
	grid, err := loadGrid(src)
	require.NoError(t, err)

	fc, err := domain.Convert(grid, domain.BandOptions{Count: 3, Colormap: domain.Viridis})
	require.NoError(t, err)

	assert.True(t, validateBounds(fc, grid).passed())
	assert.True(t, validateReproducible(fc, grid, src).passed())

	src.bands = 4
	assert.False(t, validateReproducible(fc, grid, src).passed())

	shifted := collection(feature("#440154", square(-110, 40, 1)))
	assert.False(t, validateBounds(shifted, grid).passed())
}

func TestRun_EndToEnd(t *testing.T) {
	src := sourceOptions{
		path:     writeSource(t),
		variable: "PSFC",
		bands:    domain.DefaultBandCount,
		colormap: "viridis",
		latVar:   netcdf.DefaultLatVariable,
		lonVar:   netcdf.DefaultLonVariable,
	}
	grid, err := loadGrid(src)
	require.NoError(t, err)
	fc, err := domain.Convert(grid, domain.BandOptions{Count: domain.DefaultBandCount, Colormap: domain.Viridis})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, domain.Encode(&buf, fc, true))
	out := filepath.Join(t.TempDir(), "psfc.geojson")
	require.NoError(t, os.WriteFile(out, buf.Bytes(), 0o600))

	assert.Equal(t, 0, run(out, src))
	assert.Equal(t, 1, run(filepath.Join(t.TempDir(), "missing.geojson"), sourceOptions{}))
}
