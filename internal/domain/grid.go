package domain

import (
	"math"

	"github.com/ctessum/sparse"
)

// Point is a fractional position in grid-index space: X is the column,
// Y the row.
type Point struct {
	X float64
	Y float64
}

// Grid is one horizontal slice of a field together with the latitude and
// longitude of every node. It is immutable after construction.
type Grid struct {
	rows   int
	cols   int
	values *sparse.DenseArray
	lat    *sparse.DenseArray
	lon    *sparse.DenseArray
}

// NewGrid builds a Grid from row-major 2D arrays. All three arrays must be
// rectangular and share the same shape.
func NewGrid(values, lat, lon [][]float64) (*Grid, error) {
	rows, cols, err := shapeOf("values", values, nil)
	if err != nil {
		return nil, err
	}
	want := []int{rows, cols}
	if _, _, err := shapeOf("lat", lat, want); err != nil {
		return nil, err
	}
	if _, _, err := shapeOf("lon", lon, want); err != nil {
		return nil, err
	}
	return NewGridFromFlat(rows, cols, flatten(values), flatten(lat), flatten(lon))
}

// NewGridFromFlat builds a Grid from row-major flat slices of length
// rows*cols. The slices are copied.
func NewGridFromFlat(rows, cols int, values, lat, lon []float64) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, &ShapeMismatchError{Name: "values", Expected: []int{1, 1}, Actual: []int{rows, cols}}
	}
	n := rows * cols
	for _, a := range []struct {
		name string
		data []float64
	}{{"values", values}, {"lat", lat}, {"lon", lon}} {
		if len(a.data) != n {
			return nil, &ShapeMismatchError{Name: a.name, Expected: []int{rows, cols}, Actual: []int{len(a.data)}}
		}
	}
	return &Grid{
		rows:   rows,
		cols:   cols,
		values: dense(rows, cols, values),
		lat:    dense(rows, cols, lat),
		lon:    dense(rows, cols, lon),
	}, nil
}

// Rows returns the number of rows (south_north).
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns (west_east).
func (g *Grid) Cols() int { return g.cols }

// Shape returns [rows, cols].
func (g *Grid) Shape() []int { return []int{g.rows, g.cols} }

// Value returns the sample at (row, col). NaN marks a missing sample.
func (g *Grid) Value(row, col int) float64 { return g.values.Get(row, col) }

// Lat returns the latitude of node (row, col).
func (g *Grid) Lat(row, col int) float64 { return g.lat.Get(row, col) }

// Lon returns the longitude of node (row, col).
func (g *Grid) Lon(row, col int) float64 { return g.lon.Get(row, col) }

// Range returns the minimum and maximum finite sample. ok is false when the
// grid holds no finite samples.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.values.Elements {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// LonLatBounds returns the geographic extent of the grid nodes.
func (g *Grid) LonLatBounds() (minLon, minLat, maxLon, maxLat float64) {
	minLon, minLat = math.Inf(1), math.Inf(1)
	maxLon, maxLat = math.Inf(-1), math.Inf(-1)
	for i := range g.lat.Elements {
		minLat = math.Min(minLat, g.lat.Elements[i])
		maxLat = math.Max(maxLat, g.lat.Elements[i])
		minLon = math.Min(minLon, g.lon.Elements[i])
		maxLon = math.Max(maxLon, g.lon.Elements[i])
	}
	return minLon, minLat, maxLon, maxLat
}

func shapeOf(name string, a [][]float64, want []int) (rows, cols int, err error) {
	rows = len(a)
	if rows > 0 {
		cols = len(a[0])
	}
	if want == nil && (rows == 0 || cols == 0) {
		return 0, 0, &ShapeMismatchError{Name: name, Expected: []int{1, 1}, Actual: []int{rows, cols}}
	}
	if want != nil && (rows != want[0] || cols != want[1]) {
		return 0, 0, &ShapeMismatchError{Name: name, Expected: want, Actual: []int{rows, cols}}
	}
	for _, row := range a {
		if len(row) != cols {
			return 0, 0, &ShapeMismatchError{Name: name, Expected: []int{rows, cols}, Actual: []int{rows, len(row)}}
		}
	}
	return rows, cols, nil
}

func flatten(a [][]float64) []float64 {
	var out []float64
	for _, row := range a {
		out = append(out, row...)
	}
	return out
}

func dense(rows, cols int, data []float64) *sparse.DenseArray {
	arr := sparse.ZerosDense(rows, cols)
	copy(arr.Elements, data)
	return arr
}
