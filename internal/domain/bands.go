package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultBandCount is the number of equal intervals used when the caller
// gives neither a count nor explicit edges.
const DefaultBandCount = 10

// Band is a half-open value interval [Low, High) painted with one color.
// The last band of a set is Closed so the field maximum belongs to it.
type Band struct {
	Index  int
	Low    float64
	High   float64
	Closed bool
	Color  string
}

// Contains reports whether v falls inside the band. NaN is never inside.
func (b Band) Contains(v float64) bool {
	if math.IsNaN(v) || v < b.Low {
		return false
	}
	return v < b.High || (b.Closed && v == b.High)
}

// BandOptions selects how a field's range is partitioned. Edges wins over
// Count when both are set.
type BandOptions struct {
	Count    int
	Edges    []float64
	Colormap Colormap
}

// BuildBands partitions the grid's finite value range. A field with no
// range returns ErrDegenerateInput and no bands.
func BuildBands(g *Grid, opts BandOptions) ([]Band, error) {
	cmap := opts.Colormap
	if len(cmap.stops) == 0 {
		cmap = Viridis
	}
	if len(opts.Edges) > 0 {
		return ExplicitBands(opts.Edges, cmap)
	}
	lo, hi, ok := g.Range()
	if !ok {
		return nil, ErrDegenerateInput
	}
	n := opts.Count
	if n == 0 {
		n = DefaultBandCount
	}
	return EqualBands(lo, hi, n, cmap)
}

// EqualBands splits [lo, hi] into n equal intervals.
func EqualBands(lo, hi float64, n int, cmap Colormap) ([]Band, error) {
	if n < 1 {
		return nil, &InvalidBandsError{Reason: fmt.Sprintf("band count must be positive, got %d", n)}
	}
	if !(hi > lo) {
		return nil, ErrDegenerateInput
	}
	edges := floats.Span(make([]float64, n+1), lo, hi)
	edges[n] = hi
	return ExplicitBands(edges, cmap)
}

// ExplicitBands builds one band per consecutive pair of edges. Edges must be
// finite and strictly increasing.
func ExplicitBands(edges []float64, cmap Colormap) ([]Band, error) {
	if len(edges) < 2 {
		return nil, &InvalidBandsError{Reason: fmt.Sprintf("need at least 2 edges, got %d", len(edges))}
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, &InvalidBandsError{Reason: fmt.Sprintf("edge %d is not finite", i)}
		}
		if i > 0 && !(e > edges[i-1]) {
			return nil, &InvalidBandsError{Reason: fmt.Sprintf("edges must be strictly increasing at %d", i)}
		}
	}
	n := len(edges) - 1
	bands := make([]Band, n)
	for i := range bands {
		bands[i] = Band{
			Index:  i,
			Low:    edges[i],
			High:   edges[i+1],
			Closed: i == n-1,
			Color:  cmap.Sample(i, n),
		}
	}
	return bands, nil
}
