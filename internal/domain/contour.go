package domain

import (
	"math"
)

// Path is a closed loop in grid-index space. The edge from the last point
// back to the first is implicit.
type Path []Point

// SignedArea returns the shoelace area of the loop: positive when it winds
// counter-clockwise in (x, y), negative when clockwise.
func (p Path) SignedArea() float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return a / 2
}

// node is a sample position with its value. rank orders nodes so that a
// crossing on a shared edge is computed the same way from either side.
type node struct {
	p    Point
	v    float64
	rank int
}

// TraceBand returns the closed boundary paths of the part of g that lies in
// band b. Outer boundaries wind counter-clockwise and holes clockwise.
// Regions touching the grid edge are closed along the border. A band that
// covers no cell yields no paths.
func TraceBand(g *Grid, b Band) []Path {
	ec := newEdgeCollector()
	for r := 0; r < g.rows-1; r++ {
		for c := 0; c < g.cols-1; c++ {
			corners := [4]node{g.node(r, c), g.node(r, c+1), g.node(r+1, c+1), g.node(r+1, c)}
			traceCell(ec, g, r, c, corners, b)
		}
	}
	return ec.paths()
}

func traceCell(ec *edgeCollector, g *Grid, r, c int, corners [4]node, b Band) {
	var below, above, inside int
	sum := 0.0
	for _, n := range corners {
		if missing(n.v) {
			return
		}
		sum += n.v
		switch {
		case b.below(n.v):
			below++
		case b.above(n.v):
			above++
		default:
			inside++
		}
	}
	if below == 4 || above == 4 {
		return
	}
	if inside == 4 {
		ec.addFragment([]Point{corners[0].p, corners[1].p, corners[2].p, corners[3].p})
		return
	}

	center := node{
		p:    Point{X: float64(c) + 0.5, Y: float64(r) + 0.5},
		v:    sum / 4,
		rank: g.rows*g.cols + r*(g.cols-1) + c,
	}
	for k := 0; k < 4; k++ {
		ec.addFragment(clipTriangle([3]node{corners[k], corners[(k+1)%4], center}, b))
	}
}

// clipTriangle returns the part of a counter-clockwise triangle whose
// linearly interpolated value lies in b, as a counter-clockwise polygon.
func clipTriangle(tri [3]node, b Band) []Point {
	out := make([]Point, 0, 7)
	for k := 0; k < 3; k++ {
		from, to := tri[k], tri[(k+1)%3]
		if b.Contains(from.v) {
			out = append(out, from.p)
		}
		lowCross := b.below(from.v) != b.below(to.v)
		highCross := b.above(from.v) != b.above(to.v)
		switch {
		case lowCross && highCross:
			if from.v < to.v {
				out = append(out, crossing(from, to, b.Low), crossing(from, to, b.High))
			} else {
				out = append(out, crossing(from, to, b.High), crossing(from, to, b.Low))
			}
		case lowCross:
			out = append(out, crossing(from, to, b.Low))
		case highCross:
			out = append(out, crossing(from, to, b.High))
		}
	}
	return dedupe(out)
}

// crossing interpolates where the segment between a and b reaches level.
// It always starts from the lower-ranked endpoint.
func crossing(a, b node, level float64) Point {
	if a.rank > b.rank {
		a, b = b, a
	}
	t := (level - a.v) / (b.v - a.v)
	return Point{
		X: a.p.X + t*(b.p.X-a.p.X),
		Y: a.p.Y + t*(b.p.Y-a.p.Y),
	}
}

// dedupe drops repeated consecutive points, including a closing repeat.
func dedupe(pts []Point) []Point {
	out := pts[:0]
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func (b Band) below(v float64) bool { return v < b.Low }

func (b Band) above(v float64) bool {
	if b.Closed {
		return v > b.High
	}
	return v >= b.High
}

func (g *Grid) node(r, c int) node {
	return node{
		p:    Point{X: float64(c), Y: float64(r)},
		v:    g.Value(r, c),
		rank: r*g.cols + c,
	}
}

func missing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

type segment struct {
	from Point
	to   Point
}

// edgeCollector accumulates directed fragment edges. An edge and its
// reverse cancel, so only the region boundary survives.
type edgeCollector struct {
	edges []segment
	alive []bool
	open  map[segment]int
}

func newEdgeCollector() *edgeCollector {
	return &edgeCollector{open: make(map[segment]int)}
}

func (ec *edgeCollector) addFragment(poly []Point) {
	if len(poly) < 3 || Path(poly).SignedArea() == 0 {
		return
	}
	for i := range poly {
		ec.add(segment{from: poly[i], to: poly[(i+1)%len(poly)]})
	}
}

func (ec *edgeCollector) add(s segment) {
	rev := segment{from: s.to, to: s.from}
	if i, ok := ec.open[rev]; ok {
		ec.alive[i] = false
		delete(ec.open, rev)
		return
	}
	ec.open[s] = len(ec.edges)
	ec.edges = append(ec.edges, s)
	ec.alive = append(ec.alive, true)
}

// paths links the surviving edges into closed loops in discovery order.
func (ec *edgeCollector) paths() []Path {
	outgoing := make(map[Point][]int)
	for i, s := range ec.edges {
		if ec.alive[i] {
			outgoing[s.from] = append(outgoing[s.from], i)
		}
	}

	used := make([]bool, len(ec.edges))
	var paths []Path
	for i := range ec.edges {
		if !ec.alive[i] || used[i] {
			continue
		}
		if p := ec.walk(i, outgoing, used); len(p) >= 3 {
			paths = append(paths, p)
		}
	}
	return paths
}

func (ec *edgeCollector) walk(start int, outgoing map[Point][]int, used []bool) Path {
	first := ec.edges[start]
	path := Path{first.from}
	used[start] = true
	cur := first
	for range ec.edges {
		if cur.to == first.from {
			return path
		}
		next := ec.pickNext(cur, outgoing[cur.to], used)
		if next < 0 {
			return nil
		}
		used[next] = true
		path = append(path, cur.to)
		cur = ec.edges[next]
	}
	return nil
}

// pickNext chooses the unused outgoing edge that turns furthest left, which
// keeps regions that only touch at a vertex in separate loops.
func (ec *edgeCollector) pickNext(in segment, candidates []int, used []bool) int {
	best, bestTurn := -1, math.Inf(-1)
	dx, dy := in.to.X-in.from.X, in.to.Y-in.from.Y
	for _, i := range candidates {
		if used[i] {
			continue
		}
		e := ec.edges[i]
		ox, oy := e.to.X-e.from.X, e.to.Y-e.from.Y
		turn := math.Atan2(dx*oy-dy*ox, dx*ox+dy*oy)
		if turn > bestTurn {
			best, bestTurn = i, turn
		}
	}
	return best
}
