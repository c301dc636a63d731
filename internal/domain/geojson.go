package domain

import (
	"encoding/json"
	"fmt"
	"io"
)

// GeoJSON member values used by the assembler.
const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	TypeMultiPolygon      = "MultiPolygon"
)

// FeatureCollection is the output document.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one filled polygon of one band.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is always a MultiPolygon with a single polygon entry.
type Geometry struct {
	Type        string       `json:"type"`
	Coordinates []GeoPolygon `json:"coordinates"`
}

// GeoPolygon is an outer ring followed by hole rings, each a closed list of
// [lon, lat] positions.
type GeoPolygon [][][2]float64

// Properties carries the simplestyle fill attributes.
type Properties struct {
	StrokeWidth int     `json:"stroke-width"`
	Fill        string  `json:"fill"`
	FillOpacity float64 `json:"fill-opacity"`
}

// BandPolygons is the classified output of one band.
type BandPolygons struct {
	Band     Band
	Polygons []Polygon
}

// NewFeatureCollection returns an empty collection whose features encode as
// an empty array rather than null.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: TypeFeatureCollection, Features: []Feature{}}
}

// ToGeoPolygon maps a polygon's rings to geographic coordinates.
func (g *Grid) ToGeoPolygon(p Polygon) (GeoPolygon, error) {
	out := make(GeoPolygon, 0, 1+len(p.Holes))
	outer, err := g.ToGeoRing(p.Outer)
	if err != nil {
		return nil, fmt.Errorf("outer ring: %w", err)
	}
	out = append(out, outer)
	for i, h := range p.Holes {
		hole, err := g.ToGeoRing(h)
		if err != nil {
			return nil, fmt.Errorf("hole %d: %w", i, err)
		}
		out = append(out, hole)
	}
	return out, nil
}

// Assemble builds one Feature per polygon, bands in ascending order and
// polygons in discovery order within a band.
func Assemble(g *Grid, layers []BandPolygons) (*FeatureCollection, error) {
	fc := NewFeatureCollection()
	for _, layer := range layers {
		for i, p := range layer.Polygons {
			geo, err := g.ToGeoPolygon(p)
			if err != nil {
				return nil, fmt.Errorf("band %d polygon %d: %w", layer.Band.Index, i, err)
			}
			fc.Features = append(fc.Features, NewFeature(geo, layer.Band.Color))
		}
	}
	return fc, nil
}

// NewFeature wraps a geographic polygon as a filled MultiPolygon feature.
func NewFeature(p GeoPolygon, fill string) Feature {
	return Feature{
		Type: TypeFeature,
		Geometry: Geometry{
			Type:        TypeMultiPolygon,
			Coordinates: []GeoPolygon{p},
		},
		Properties: Properties{
			StrokeWidth: 0,
			Fill:        fill,
			FillOpacity: 1,
		},
	}
}

// Encode writes fc as a single JSON document. With indent the document is
// indented by two spaces.
func Encode(w io.Writer, fc *FeatureCollection, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(fc, "", "  ")
	} else {
		data, err = json.Marshal(fc)
	}
	if err != nil {
		return fmt.Errorf("encode feature collection: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write feature collection: %w", err)
	}
	return nil
}
