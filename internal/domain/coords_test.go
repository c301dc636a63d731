package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// curvedGrid has lat = 10 + row + 0.1*col and lon = 100 + 2*col - 0.05*row,
// so neither axis is rectilinear.
func curvedGrid(t *testing.T) *Grid {
	t.Helper()
	const rows, cols = 3, 4
	values := make([][]float64, rows)
	lat := make([][]float64, rows)
	lon := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		values[r] = make([]float64, cols)
		lat[r] = make([]float64, cols)
		lon[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			lat[r][c] = 10 + float64(r) + 0.1*float64(c)
			lon[r][c] = 100 + 2*float64(c) - 0.05*float64(r)
		}
	}
	g, err := NewGrid(values, lat, lon)
	require.NoError(t, err)
	return g
}

func TestToLonLat_NodesRoundTrip(t *testing.T) {
	g := curvedGrid(t)
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			lon, lat, err := g.ToLonLat(float64(c), float64(r))
			require.NoError(t, err)
			assert.Equal(t, round5(g.Lon(r, c)), lon, "lon at (%d,%d)", r, c)
			assert.Equal(t, round5(g.Lat(r, c)), lat, "lat at (%d,%d)", r, c)
		}
	}
}

func TestToLonLat_Interpolation(t *testing.T) {
	g := curvedGrid(t)

	tests := []struct {
		name string
		x, y float64
		lon  float64
		lat  float64
	}{
		// corners (0,0) and (1,1): lat 10 -> 11.1, lon 100 -> 101.95
		{"inside first cell", 0.5, 0.25, 100.975, 10.275},
		// x collapses onto column 1: lat 10.1 -> 11.1, lon stays 102
		{"integer column", 1, 0.5, 102, 10.6},
		// y collapses onto row 2: lat 12.2 -> 12.2, lon 103.9 -> 105.9
		{"integer row", 2.5, 2, 104.9, 12.2},
		// x snaps onto column 1; y rounds up but floor keeps row 0, so only
		// latitude is blended
		{"near integer column collapses", 1.000001, 0.999999, 102, 11.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lon, lat, err := g.ToLonLat(tt.x, tt.y)
			require.NoError(t, err)
			assert.InDelta(t, tt.lon, lon, 1e-9)
			assert.InDelta(t, tt.lat, lat, 1e-9)
		})
	}
}

func TestToLonLat_RoundsToFiveDecimals(t *testing.T) {
	g := curvedGrid(t)
	lon, lat, err := g.ToLonLat(1.0/3.0, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.66667, lon)
	assert.Equal(t, 10.0, lat)
}

func TestToLonLat_OutOfRange(t *testing.T) {
	g := curvedGrid(t) // 3 rows x 4 cols

	tests := []struct {
		name  string
		x, y  float64
		axis  string
		index int
	}{
		{"past last column", 3.5, 0, "column", 4},
		{"past last row", 0, 2.5, "row", 3},
		{"negative column", -0.5, 0, "column", -1},
		{"far outside", 10, 10, "column", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := g.ToLonLat(tt.x, tt.y)
			var idxErr *IndexOutOfRangeError
			require.True(t, errors.As(err, &idxErr))
			assert.Equal(t, tt.axis, idxErr.Axis)
			assert.Equal(t, tt.index, idxErr.Index)
		})
	}
}

func TestToGeoRing_Closes(t *testing.T) {
	g := curvedGrid(t)
	ring, err := g.ToGeoRing(Path{{0, 0}, {1, 0}, {1, 1}})
	require.NoError(t, err)
	require.Len(t, ring, 4)
	assert.Equal(t, ring[0], ring[3])
	assert.Equal(t, [2]float64{102, 10.1}, ring[1])
}
