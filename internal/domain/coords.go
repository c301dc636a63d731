package domain

import "math"

// ToLonLat maps a fractional grid-index point to geographic coordinates.
//
// The lower corner is (floor(x), floor(y)). The upper corner is one node
// further along each axis unless that coordinate is an integer to five
// decimal places, in which case the axis collapses onto the lower node.
// When both axes collapse the node's own coordinates are returned. Latitude
// is blended along rows and longitude along columns between the lower and
// upper corners. Results are rounded to five decimal places.
func (g *Grid) ToLonLat(x, y float64) (lon, lat float64, err error) {
	x1 := int(math.Floor(x))
	y1 := int(math.Floor(y))
	x2 := x1 + 1
	if round5(x) == float64(x1) {
		x2 = x1
	}
	y2 := y1 + 1
	if round5(y) == float64(y1) {
		y2 = y1
	}

	if err := g.checkIndex("column", x1, x2, g.cols); err != nil {
		return 0, 0, err
	}
	if err := g.checkIndex("row", y1, y2, g.rows); err != nil {
		return 0, 0, err
	}

	lat1, lon1 := g.Lat(y1, x1), g.Lon(y1, x1)
	if x1 == x2 && y1 == y2 {
		return round5(lon1), round5(lat1), nil
	}
	lat2, lon2 := g.Lat(y2, x2), g.Lon(y2, x2)

	xFrac := x - float64(x1)
	yFrac := y - float64(y1)
	lat = lat1 + (lat2-lat1)*yFrac
	lon = lon1 + (lon2-lon1)*xFrac
	return round5(lon), round5(lat), nil
}

// ToGeoRing maps every point of a path to [lon, lat] and closes the ring by
// repeating the first position.
func (g *Grid) ToGeoRing(p Path) ([][2]float64, error) {
	ring := make([][2]float64, 0, len(p)+1)
	for _, pt := range p {
		lon, lat, err := g.ToLonLat(pt.X, pt.Y)
		if err != nil {
			return nil, err
		}
		ring = append(ring, [2]float64{lon, lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

func (g *Grid) checkIndex(axis string, lo, hi, extent int) error {
	if lo < 0 || lo >= extent {
		return &IndexOutOfRangeError{Axis: axis, Index: lo, Extent: extent}
	}
	if hi < 0 || hi >= extent {
		return &IndexOutOfRangeError{Axis: axis, Index: hi, Extent: extent}
	}
	return nil
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
