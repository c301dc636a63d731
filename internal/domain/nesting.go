package domain

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/dhconnelly/rtreego"
)

// Polygon is one outer boundary with the holes it encloses, all in
// grid-index space.
type Polygon struct {
	Outer Path
	Holes []Path
}

// ring is a classified path with its cached bounds.
type ring struct {
	path   Path
	area   float64
	bounds *geom.Bounds
}

// ringEntry indexes an outer ring by its bounding box.
type ringEntry struct {
	index int
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *ringEntry) Bounds() rtreego.Rect { return e.rect }

// Classify groups one band's boundary paths into polygons with holes.
//
// Counter-clockwise paths are outer boundaries; clockwise paths are holes.
// A hole is attached to the smallest outer ring that contains it. Traced
// rings never cross, so containment is decided by the winding number of the
// outer around points on the hole's edges. A hole no outer contains goes to
// the smallest outer whose bounding box covers it, and is dropped only when
// there is none. Paths with fewer than 3 points or no area are discarded.
// Output follows outer discovery order.
func Classify(paths []Path) []Polygon {
	var outers, holes []ring
	for _, p := range paths {
		if len(p) < 3 {
			continue
		}
		a := p.SignedArea()
		switch {
		case a > 0:
			outers = append(outers, ring{path: p, area: a, bounds: pathBounds(p)})
		case a < 0:
			holes = append(holes, ring{path: p, area: -a, bounds: pathBounds(p)})
		}
	}

	polys := make([]Polygon, len(outers))
	for i, o := range outers {
		polys[i].Outer = o.path
	}
	if len(holes) == 0 || len(outers) == 0 {
		return polys
	}

	tree := rtreego.NewTree(2, 25, 50)
	for i := range outers {
		tree.Insert(&ringEntry{index: i, rect: boundsRect(outers[i].bounds)})
	}

	for _, h := range holes {
		best, fallback := -1, -1
		for _, s := range tree.SearchIntersect(boundsRect(h.bounds)) {
			i := s.(*ringEntry).index
			if covers(outers[i].bounds, h.bounds) && smaller(outers, i, fallback) {
				fallback = i
			}
			if holeInside(outers[i].path, h.path) && smaller(outers, i, best) {
				best = i
			}
		}
		if best < 0 {
			best = fallback
		}
		if best >= 0 {
			polys[best].Holes = append(polys[best].Holes, h.path)
		}
	}
	return polys
}

// smaller reports whether outer i beats the current pick. Equal areas go to
// the earlier outer.
func smaller(outers []ring, i, current int) bool {
	if current < 0 {
		return true
	}
	return outers[i].area < outers[current].area || (outers[i].area == outers[current].area && i < current)
}

// holeInside reports whether hole lies inside outer. The midpoint of a hole
// edge sits on the hole boundary, so unless it also lies on the outer ring
// its winding number decides. Edges are tried longest first.
func holeInside(outer, hole Path) bool {
	n := len(hole)
	longest, best := 0, -1.0
	for i, a := range hole {
		b := hole[(i+1)%n]
		if l := math.Hypot(b.X-a.X, b.Y-a.Y); l > best {
			longest, best = i, l
		}
	}
	for k := range n {
		i := (longest + k) % n
		a, b := hole[i], hole[(i+1)%n]
		if a == b {
			continue
		}
		w, onEdge := winding(outer, Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2})
		if !onEdge {
			return w != 0
		}
	}
	return false
}

// winding returns the winding number of ring around p using exact
// half-open crossing rules, and whether p lies on the ring itself.
func winding(ring Path, p Point) (int, bool) {
	w := 0
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		side := (b.X-a.X)*(p.Y-a.Y) - (p.X-a.X)*(b.Y-a.Y)
		if side == 0 &&
			p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
			p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y) {
			return 0, true
		}
		if a.Y <= p.Y {
			if b.Y > p.Y && side > 0 {
				w++
			}
		} else if b.Y <= p.Y && side < 0 {
			w--
		}
	}
	return w, false
}

// RingEncloses reports whether every position of inner lies inside or on
// outer and at least one lies strictly inside. Rings are [x, y] pairs and
// may be open or closed.
func RingEncloses(outer, inner [][2]float64) bool {
	o := toPath(outer)
	strictly := false
	for _, pt := range toPath(inner) {
		w, onEdge := winding(o, pt)
		switch {
		case onEdge:
		case w == 0:
			return false
		default:
			strictly = true
		}
	}
	return strictly
}

func toPath(r [][2]float64) Path {
	p := make(Path, 0, len(r))
	for _, pt := range r {
		p = append(p, Point{X: pt[0], Y: pt[1]})
	}
	if len(p) > 1 && p[0] == p[len(p)-1] {
		p = p[:len(p)-1]
	}
	return p
}

func pathBounds(p Path) *geom.Bounds {
	b := geom.NewBounds()
	for _, pt := range p {
		b.Extend(geom.NewBoundsPoint(geom.Point{X: pt.X, Y: pt.Y}))
	}
	return b
}

func covers(outer, inner *geom.Bounds) bool {
	return outer.Min.X <= inner.Min.X && outer.Min.Y <= inner.Min.Y &&
		outer.Max.X >= inner.Max.X && outer.Max.Y >= inner.Max.Y
}

func boundsRect(b *geom.Bounds) rtreego.Rect {
	lengths := []float64{
		math.Max(b.Max.X-b.Min.X, 1e-9),
		math.Max(b.Max.Y-b.Min.Y, 1e-9),
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min.X, b.Min.Y}, lengths)
	return rect
}
