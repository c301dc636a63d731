// Command validate checks a GeoJSON document produced by wrfgeojson: its
// structure, ring geometry, hole containment and band ordering. Given the
// source NetCDF file it also checks that every coordinate lies inside the
// grid and that converting the slice again reproduces the document exactly.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -geojson t2.geojson \
//	  -nc data/mock/wrfout_d01_mock.nc -variable T2 -bands 10
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"regexp"

	"github.com/couchcryptid/wrf-geojson/internal/adapter/netcdf"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
)

// coordTolerance covers the 5-decimal rounding of output coordinates.
const coordTolerance = 1e-5

var hexColor = regexp.MustCompile(`^#[0-9a-f]{6}$`)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// sourceOptions describe how to rebuild the document from NetCDF.
type sourceOptions struct {
	path      string
	variable  string
	zLevel    int
	timeIndex int
	bands     int
	colormap  string
	latVar    string
	lonVar    string
}

func main() {
	geojsonPath := flag.String("geojson", "", "GeoJSON document to validate")
	var src sourceOptions
	flag.StringVar(&src.path, "nc", "", "source NetCDF file (optional)")
	flag.StringVar(&src.variable, "variable", "", "variable the document was built from")
	flag.IntVar(&src.zLevel, "z-level", 0, "vertical level the document was built from")
	flag.IntVar(&src.timeIndex, "time-index", 0, "time index the document was built from")
	flag.IntVar(&src.bands, "bands", domain.DefaultBandCount, "band count the document was built with")
	flag.StringVar(&src.colormap, "colormap", "viridis", "colormap the document was built with")
	flag.StringVar(&src.latVar, "lat", netcdf.DefaultLatVariable, "latitude variable")
	flag.StringVar(&src.lonVar, "lon", netcdf.DefaultLonVariable, "longitude variable")
	flag.Parse()

	if *geojsonPath == "" || (src.path != "" && src.variable == "") {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*geojsonPath, src); code != 0 {
		os.Exit(code)
	}
}

func run(geojsonPath string, src sourceOptions) int {
	fmt.Println("=== GeoJSON Contour Validation ===")
	fmt.Println()

	fc, err := loadCollection(geojsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load GeoJSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStructure(fc),
		validateRings(fc),
		validateHoles(fc),
		validateBandOrder(fc),
	}

	if src.path != "" {
		grid, err := loadGrid(src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load NetCDF: %v\n", err)
			return 1
		}
		phases = append(phases,
			validateBounds(fc, grid),
			validateReproducible(fc, grid, src),
		)
	}

	return report(phases, len(fc.Features))
}

func report(phases []*phase, features int) int {
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Features: %d\n", features)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadCollection(path string) (*domain.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func loadGrid(src sourceOptions) (*domain.Grid, error) {
	source := netcdf.NewSource(src.latVar, src.lonVar, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	return source.LoadGrid(context.Background(), domain.SliceRequest{
		Path:      src.path,
		Variable:  src.variable,
		ZLevel:    src.zLevel,
		TimeIndex: src.timeIndex,
	})
}

// ── Phases ──

func validateStructure(fc *domain.FeatureCollection) *phase {
	p := &phase{name: "Document structure"}
	if fc.Type != domain.TypeFeatureCollection {
		p.errorf("type = %q, want %q", fc.Type, domain.TypeFeatureCollection)
	}
	if fc.Features == nil {
		p.errorf("features is null, want an array")
	}
	for i, f := range fc.Features {
		if f.Type != domain.TypeFeature {
			p.errorf("feature %d: type = %q", i, f.Type)
		}
		if f.Geometry.Type != domain.TypeMultiPolygon {
			p.errorf("feature %d: geometry type = %q", i, f.Geometry.Type)
		}
		if n := len(f.Geometry.Coordinates); n != 1 {
			p.errorf("feature %d: %d polygons, want 1", i, n)
		}
		if !hexColor.MatchString(f.Properties.Fill) {
			p.errorf("feature %d: fill %q is not #rrggbb", i, f.Properties.Fill)
		}
		if f.Properties.FillOpacity < 0 || f.Properties.FillOpacity > 1 {
			p.errorf("feature %d: fill-opacity %v outside [0, 1]", i, f.Properties.FillOpacity)
		}
		if f.Properties.StrokeWidth < 0 {
			p.errorf("feature %d: negative stroke-width", i)
		}
	}
	return p
}

func validateRings(fc *domain.FeatureCollection) *phase {
	p := &phase{name: "Ring geometry"}
	eachRing(fc, func(fi, ri int, ring [][2]float64) {
		if len(ring) < 4 {
			p.errorf("feature %d ring %d: %d positions, want at least 4", fi, ri, len(ring))
			return
		}
		if ring[0] != ring[len(ring)-1] {
			p.errorf("feature %d ring %d: not closed", fi, ri)
		}
		for _, pt := range ring {
			if !finite(pt[0]) || !finite(pt[1]) {
				p.errorf("feature %d ring %d: non-finite position %v", fi, ri, pt)
				return
			}
		}
		if ringArea(ring) == 0 {
			p.errorf("feature %d ring %d: zero area", fi, ri)
		}
	})
	return p
}

func validateHoles(fc *domain.FeatureCollection) *phase {
	p := &phase{name: "Hole containment"}
	for fi, f := range fc.Features {
		for _, poly := range f.Geometry.Coordinates {
			if len(poly) == 0 {
				continue
			}
			for hi, hole := range poly[1:] {
				if !domain.RingEncloses(poly[0], hole) {
					p.errorf("feature %d hole %d: not inside the outer ring", fi, hi)
				}
			}
		}
	}
	return p
}

// validateBandOrder checks that features of one band are contiguous: once a
// fill has been left it must not come back.
func validateBandOrder(fc *domain.FeatureCollection) *phase {
	p := &phase{name: "Band ordering"}
	seen := map[string]bool{}
	prev := ""
	for i, f := range fc.Features {
		fill := f.Properties.Fill
		if fill == prev {
			continue
		}
		if seen[fill] {
			p.errorf("feature %d: fill %s reappears after another band", i, fill)
		}
		seen[fill] = true
		prev = fill
	}
	return p
}

func validateBounds(fc *domain.FeatureCollection, grid *domain.Grid) *phase {
	p := &phase{name: "Coordinates inside grid"}
	minLon, minLat, maxLon, maxLat := grid.LonLatBounds()
	eachRing(fc, func(fi, ri int, ring [][2]float64) {
		for _, pt := range ring {
			if pt[0] < minLon-coordTolerance || pt[0] > maxLon+coordTolerance ||
				pt[1] < minLat-coordTolerance || pt[1] > maxLat+coordTolerance {
				p.errorf("feature %d ring %d: %v outside [%v, %v]x[%v, %v]", fi, ri, pt, minLon, maxLon, minLat, maxLat)
				return
			}
		}
	})
	return p
}

func validateReproducible(fc *domain.FeatureCollection, grid *domain.Grid, src sourceOptions) *phase {
	p := &phase{name: "Reproducible from source"}
	cmap, ok := domain.Colormaps[src.colormap]
	if !ok {
		p.errorf("unknown colormap %q", src.colormap)
		return p
	}

	want, err := domain.Convert(grid, domain.BandOptions{Count: src.bands, Colormap: cmap})
	if err != nil && want == nil {
		p.errorf("convert: %v", err)
		return p
	}

	var got, exp bytes.Buffer
	if err := domain.Encode(&got, fc, false); err != nil {
		p.errorf("encode document: %v", err)
		return p
	}
	if err := domain.Encode(&exp, want, false); err != nil {
		p.errorf("encode reconversion: %v", err)
		return p
	}
	if len(fc.Features) != len(want.Features) {
		p.errorf("document has %d features, reconversion has %d", len(fc.Features), len(want.Features))
	}
	if !bytes.Equal(got.Bytes(), exp.Bytes()) {
		p.errorf("document differs from reconversion (%d vs %d bytes)", got.Len(), exp.Len())
	}
	return p
}

// ── Helpers ──

func eachRing(fc *domain.FeatureCollection, fn func(feature, ring int, coords [][2]float64)) {
	for fi, f := range fc.Features {
		ri := 0
		for _, poly := range f.Geometry.Coordinates {
			for _, ring := range poly {
				fn(fi, ri, ring)
				ri++
			}
		}
	}
}

func ringArea(ring [][2]float64) float64 {
	var a float64
	for i := 0; i+1 < len(ring); i++ {
		a += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return a / 2
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
