// Package netcdf reads horizontal slices of WRF output stored as NetCDF
// classic files.
package netcdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/ctessum/cdf"
)

// Default WRF coordinate variables.
const (
	DefaultLatVariable = "XLAT"
	DefaultLonVariable = "XLONG"
)

// timeDims are the dimension names treated as the record axis.
var timeDims = []string{"Time", "time", "t"}

// Source loads grids from NetCDF files. It implements pipeline.GridSource.
type Source struct {
	latVar string
	lonVar string
	logger *slog.Logger
}

// NewSource creates a Source that reads coordinates from the named
// variables. Empty names fall back to XLAT and XLONG.
func NewSource(latVar, lonVar string, logger *slog.Logger) *Source {
	if latVar == "" {
		latVar = DefaultLatVariable
	}
	if lonVar == "" {
		lonVar = DefaultLonVariable
	}
	return &Source{latVar: latVar, lonVar: lonVar, logger: logger}
}

// LoadGrid reads req.Variable at req.TimeIndex (and req.ZLevel for
// variables with a vertical axis) together with the matching coordinates.
func (s *Source) LoadGrid(ctx context.Context, req domain.SliceRequest) (*domain.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", req.Path, err)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("read netcdf header %s: %w", req.Path, err)
	}

	field, err := readSlice(nc, req.Path, req.Variable, req.TimeIndex, req.ZLevel)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lat, err := s.readCoordinate(nc, req, s.latVar, field)
	if err != nil {
		return nil, err
	}
	lon, err := s.readCoordinate(nc, req, s.lonVar, field)
	if err != nil {
		return nil, err
	}

	g, err := domain.NewGridFromFlat(field.rows, field.cols, field.data, lat.data, lon.data)
	if err != nil {
		return nil, fmt.Errorf("build grid for %s: %w", req.Variable, err)
	}

	s.logger.Debug("grid loaded",
		"path", req.Path,
		"variable", req.Variable,
		"z_level", req.ZLevel,
		"time_index", req.TimeIndex,
		"rows", field.rows,
		"cols", field.cols,
	)
	return g, nil
}

// readCoordinate reads a coordinate slice. Coordinates with a single record
// are shared by every time step.
func (s *Source) readCoordinate(nc *cdf.File, req domain.SliceRequest, name string, field slice) (slice, error) {
	t := req.TimeIndex
	if hasVariable(nc, name) && recordCount(nc, name) == 1 {
		t = 0
	}
	c, err := readSlice(nc, req.Path, name, t, 0)
	if err != nil {
		return slice{}, err
	}
	if c.rows != field.rows || c.cols != field.cols {
		return slice{}, &domain.ShapeMismatchError{
			Name:     name,
			Expected: []int{field.rows, field.cols},
			Actual:   []int{c.rows, c.cols},
		}
	}
	return c, nil
}

// slice is one horizontal plane in row-major order.
type slice struct {
	rows int
	cols int
	data []float64
}

// layout describes where the horizontal plane sits inside a variable.
type layout struct {
	times  int
	levels int
	rows   int
	cols   int
}

func readSlice(nc *cdf.File, path, name string, t, z int) (slice, error) {
	if !hasVariable(nc, name) {
		return slice{}, &domain.MissingVariableError{Variable: name, Source: path}
	}

	l, err := layoutOf(nc, name)
	if err != nil {
		return slice{}, err
	}
	if t < 0 || t >= l.times {
		return slice{}, &domain.IndexOutOfRangeError{Axis: "time", Index: t, Extent: l.times}
	}
	if z < 0 || z >= l.levels {
		return slice{}, &domain.IndexOutOfRangeError{Axis: "level", Index: z, Extent: l.levels}
	}

	all, err := readAll(nc, name, l.times*l.levels*l.rows*l.cols)
	if err != nil {
		return slice{}, err
	}

	plane := l.rows * l.cols
	start := (t*l.levels + z) * plane
	data := make([]float64, plane)
	copy(data, all[start:start+plane])
	maskFill(nc, name, data)

	return slice{rows: l.rows, cols: l.cols, data: data}, nil
}

func layoutOf(nc *cdf.File, name string) (layout, error) {
	lengths := nc.Header.Lengths(name)
	dims := nc.Header.Dimensions(name)
	switch len(lengths) {
	case 2:
		return layout{times: 1, levels: 1, rows: lengths[0], cols: lengths[1]}, nil
	case 3:
		if slices.Contains(timeDims, dims[0]) {
			return layout{times: lengths[0], levels: 1, rows: lengths[1], cols: lengths[2]}, nil
		}
		return layout{times: 1, levels: lengths[0], rows: lengths[1], cols: lengths[2]}, nil
	case 4:
		return layout{times: lengths[0], levels: lengths[1], rows: lengths[2], cols: lengths[3]}, nil
	default:
		return layout{}, fmt.Errorf("variable %s has %d dimensions, want 2 to 4", name, len(lengths))
	}
}

func recordCount(nc *cdf.File, name string) int {
	l, err := layoutOf(nc, name)
	if err != nil {
		return 0
	}
	return l.times
}

func hasVariable(nc *cdf.File, name string) bool {
	return slices.Contains(nc.Header.Variables(), name)
}

func readAll(nc *cdf.File, name string, n int) ([]float64, error) {
	r := nc.Reader(name, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read variable %s: %w", name, err)
	}
	out, err := toFloat64(buf)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	if len(out) != n {
		return nil, fmt.Errorf("variable %s: dims are %d but array length is %d", name, n, len(out))
	}
	return out, nil
}

func toFloat64(buf any) ([]float64, error) {
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convert(v), nil
	case []int32:
		return convert(v), nil
	case []int16:
		return convert(v), nil
	case []int8:
		return convert(v), nil
	default:
		return nil, fmt.Errorf("unsupported data type %T", buf)
	}
}

func convert[T float32 | int32 | int16 | int8](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// maskFill replaces samples equal to the variable's _FillValue (or
// missing_value) with NaN.
func maskFill(nc *cdf.File, name string, data []float64) {
	for _, attr := range []string{"_FillValue", "missing_value"} {
		fill, ok := scalarAttribute(nc, name, attr)
		if !ok {
			continue
		}
		for i, v := range data {
			if v == fill {
				data[i] = math.NaN()
			}
		}
	}
}

func scalarAttribute(nc *cdf.File, name, attr string) (float64, bool) {
	switch v := nc.Header.GetAttribute(name, attr).(type) {
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}
