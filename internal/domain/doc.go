// Package domain turns a WRF scalar field into filled contour polygons
// expressed as GeoJSON.
//
// # Data Source
//
// WRF history files store 2D and 3D fields on a curvilinear Lambert/Mercator
// grid. Each horizontal slice is indexed (south_north, west_east); the
// geographic position of every node is given by the co-indexed XLAT and
// XLONG variables. The netcdf adapter hands this package one slice plus its
// two coordinate arrays as a [Grid].
//
// # Grid Index Space
//
// Contours are traced in fractional grid-index space:
//
//	x = column (west_east), y = row (south_north)
//
// Row 0 is the southern edge of the domain, so counter-clockwise rings in
// (x, y) stay counter-clockwise in (lon, lat). That matches RFC 7946, where
// exterior rings are counter-clockwise and holes clockwise.
//
// # Bands
//
// The observed value range [min, max] is split into N half-open intervals
// [low, high). The last band is closed at the top so the field maximum is
// always painted. A constant field has no range and yields no bands.
//
// # Tracing
//
// Each grid cell is split into four triangles around its centre, whose value
// is the mean of the four corners (this is the usual marching-squares saddle
// resolution). On a triangle the field is linear, so the part of it inside a
// band is a convex polygon whose vertices are the in-band corners plus the
// threshold crossings on its edges. Crossings are always interpolated from the
// lower-ranked endpoint, which makes the points on a shared edge bit-identical
// in both neighbours; shared fragment edges then cancel exactly and what is
// left is the band boundary, including the walk along the grid border.
//
// Missing samples (NaN) are outside every band. A cell with a missing corner
// contributes nothing, so missing regions become holes or notches.
//
// # Geographic Mapping
//
// Index points are mapped to (lon, lat) by bilinear blending of the
// surrounding nodes (see [Grid.ToLonLat]). When an index is an integer to
// five decimal places the cell collapses onto that node and no interpolation
// happens, so grid nodes map exactly to their stored coordinates.
package domain
