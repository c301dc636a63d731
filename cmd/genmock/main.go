// Command genmock writes a synthetic WRF output file for local runs and
// smoke tests. The grid is curvilinear like a Lambert conformal domain and
// the fields are smooth analytic shapes, so contours are stable across runs.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/wrfout_d01_mock.nc -rows 60 -cols 80
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wrf-geojson/internal/adapter/netcdf"
	"gonum.org/v1/gonum/floats"
)

// Domain center and spacing in degrees, roughly a 12 km grid over Oklahoma.
const (
	centerLat = 35.5
	centerLon = -97.5
	spacing   = 0.11
	// rotation of the grid rows relative to parallels, radians per column
	// away from the center; gives the curvature a projected grid has.
	bend = 0.0025
)

type shape struct {
	rows, cols, levels, times int
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output NetCDF path")
	rows := flag.Int("rows", 60, "south_north points")
	cols := flag.Int("cols", 80, "west_east points")
	levels := flag.Int("levels", 10, "bottom_top levels")
	times := flag.Int("times", 3, "records along Time")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	s := shape{rows: *rows, cols: *cols, levels: *levels, times: *times}
	if s.rows < 2 || s.cols < 2 || s.levels < 1 || s.times < 1 {
		return fmt.Errorf("grid must be at least 2x2 with one level and one time, got %+v", s)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ds := synthesize(s)
	if err := netcdf.Write(*out, ds); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %s: %dx%d grid, %d levels, %d times", *out, s.rows, s.cols, s.levels, s.times)

	for _, v := range ds.Variables {
		log.Printf("  %-7s %v  range [%.4g, %.4g]", v.Name, v.Dims, floats.Min(v.Data), floats.Max(v.Data))
	}
	return nil
}

// synthesize builds the dataset. Fields drift east by one column per record
// so each time index contours differently.
func synthesize(s shape) netcdf.Dataset {
	plane := s.rows * s.cols
	surface := []string{"Time", "south_north", "west_east"}
	volume := []string{"Time", "bottom_top", "south_north", "west_east"}

	lat := make([]float64, 0, s.times*plane)
	lon := make([]float64, 0, s.times*plane)
	hgt := make([]float64, 0, s.times*plane)
	t2 := make([]float64, 0, s.times*plane)
	rain := make([]float64, 0, s.times*plane)
	qv := make([]float64, 0, s.times*s.levels*plane)

	for t := 0; t < s.times; t++ {
		for r := 0; r < s.rows; r++ {
			for c := 0; c < s.cols; c++ {
				la, lo := position(s, r, c)
				lat = append(lat, la)
				lon = append(lon, lo)

				x, y := norm(c, s.cols), norm(r, s.rows)
				h := terrain(x, y)
				hgt = append(hgt, h)
				t2 = append(t2, 303-0.0065*h-12*y+4*bump(x-0.1*float64(t), y, 0.35, 0.5, 0.15))
				rain = append(rain, math.Max(0, 40*bump(x, y, 0.2+0.15*float64(t), 0.6, 0.1)-2))
			}
		}
		for z := 0; z < s.levels; z++ {
			decay := math.Exp(-float64(z) / 3)
			for r := 0; r < s.rows; r++ {
				for c := 0; c < s.cols; c++ {
					x, y := norm(c, s.cols), norm(r, s.rows)
					qv = append(qv, decay*(0.004+0.012*bump(x, y, 0.5+0.05*float64(t), 0.3, 0.25)))
				}
			}
		}
	}

	return netcdf.Dataset{
		Dimensions: []netcdf.Dimension{
			{Name: "Time", Length: s.times},
			{Name: "bottom_top", Length: s.levels},
			{Name: "south_north", Length: s.rows},
			{Name: "west_east", Length: s.cols},
		},
		Variables: []netcdf.Variable{
			{Name: "XLAT", Dims: surface, Data: lat, Attributes: map[string]any{"units": "degree_north"}},
			{Name: "XLONG", Dims: surface, Data: lon, Attributes: map[string]any{"units": "degree_east"}},
			{Name: "HGT", Dims: surface, Data: hgt, Attributes: map[string]any{"units": "m"}},
			{Name: "T2", Dims: surface, Data: t2, Attributes: map[string]any{"units": "K", "description": "TEMP at 2 M"}},
			{Name: "RAINNC", Dims: surface, Data: rain, Attributes: map[string]any{"units": "mm"}},
			{Name: "QVAPOR", Dims: volume, Data: qv, Attributes: map[string]any{"units": "kg kg-1"}},
		},
		Attributes: map[string]any{
			"TITLE":    "SYNTHETIC WRF OUTPUT FOR wrf-geojson",
			"CEN_LAT":  []float32{centerLat},
			"CEN_LON":  []float32{centerLon},
			"MAP_PROJ": []int32{1},
		},
	}
}

// position places grid point (r, c) so that rows bow toward the pole away
// from the central column.
func position(s shape, r, c int) (lat, lon float64) {
	dr := float64(r) - float64(s.rows-1)/2
	dc := float64(c) - float64(s.cols-1)/2
	lat = centerLat + spacing*dr + bend*dc*dc*spacing
	lon = centerLon + spacing*dc/math.Cos(lat*math.Pi/180)
	return lat, lon
}

func norm(i, n int) float64 {
	return float64(i) / float64(n-1)
}

func bump(x, y, cx, cy, width float64) float64 {
	dx, dy := x-cx, y-cy
	return math.Exp(-(dx*dx + dy*dy) / (2 * width * width))
}

func terrain(x, y float64) float64 {
	return 300 + 900*x*x + 150*math.Sin(6*y)*x
}
