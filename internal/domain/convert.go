package domain

import (
	"errors"
)

// ContourBand traces one band and groups its paths into polygons. Bands are
// independent of each other, so callers may run this concurrently.
func ContourBand(g *Grid, b Band) BandPolygons {
	return BandPolygons{Band: b, Polygons: Classify(TraceBand(g, b))}
}

// Convert runs the whole chain serially: bands, tracing, nesting,
// coordinate mapping and assembly. A field without a value range yields an
// empty collection together with ErrDegenerateInput, which callers should
// treat as a warning.
func Convert(g *Grid, opts BandOptions) (*FeatureCollection, error) {
	bands, err := BuildBands(g, opts)
	if errors.Is(err, ErrDegenerateInput) {
		return NewFeatureCollection(), err
	}
	if err != nil {
		return nil, err
	}

	layers := make([]BandPolygons, len(bands))
	for i, b := range bands {
		layers[i] = ContourBand(g, b)
	}
	return Assemble(g, layers)
}
