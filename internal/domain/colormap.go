package domain

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Colormap is a piecewise-linear color ramp over [0, 1].
type Colormap struct {
	Name  string
	stops []colorful.Color
}

// Viridis is the default ramp, matching the default filled-contour palette of
// common plotting tools. Stops are viridis sampled at k/8.
var Viridis = mustColormap("viridis",
	"#440154", "#472c7a", "#3b518b", "#2c718e", "#21908d",
	"#27ad81", "#5cc863", "#aadc32", "#fde725",
)

// Colormaps lists the ramps selectable by name.
var Colormaps = map[string]Colormap{
	"viridis": Viridis,
	"greys":   mustColormap("greys", "#ffffff", "#000000"),
}

// At returns the ramp color at t, clamped to [0, 1].
func (c Colormap) At(t float64) colorful.Color {
	if t <= 0 {
		return c.stops[0]
	}
	if t >= 1 {
		return c.stops[len(c.stops)-1]
	}
	scaled := t * float64(len(c.stops)-1)
	i := int(scaled)
	return c.stops[i].BlendRgb(c.stops[i+1], scaled-float64(i)).Clamped()
}

// Sample returns the hex color of band i when n bands are drawn: the ramp is
// sampled at n evenly spaced points from its start to its end.
func (c Colormap) Sample(i, n int) string {
	if n <= 1 {
		return c.At(0).Hex()
	}
	return c.At(float64(i) / float64(n-1)).Hex()
}

func mustColormap(name string, hexes ...string) Colormap {
	stops := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		stops[i] = c
	}
	return Colormap{Name: name, stops: stops}
}
