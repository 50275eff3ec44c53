package geo

import (
	"sort"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// ProjectionTolerance is the largest angle between a point and its
// projection for the two to be treated as the same position.
const ProjectionTolerance s1.Angle = 1e-13

func coincide(a, b s2.Point) bool {
	return a.Distance(b) <= ProjectionTolerance
}

// projectOnLine returns the point of l closest to x.
func projectOnLine(l *LineString, x s2.Point) s2.Point {
	p, _ := l.line.Project(x)
	return p
}

// polygonQuery answers repeated projection questions against one polygon.
type polygonQuery struct {
	poly  *s2.Polygon
	edges *s2.EdgeQuery
}

func newPolygonQuery(p *Polygon) *polygonQuery {
	index := s2.NewShapeIndex()
	index.Add(p.poly)
	return &polygonQuery{
		poly:  p.poly,
		edges: s2.NewClosestEdgeQuery(index, s2.NewClosestEdgeQueryOptions().MaxResults(1)),
	}
}

// boundaryProjection returns the closest point on the polygon boundary.
func (q *polygonQuery) boundaryProjection(x s2.Point) (s2.Point, bool) {
	res := q.edges.FindEdges(s2.NewMinDistanceToPointTarget(x))
	if len(res) == 0 || res[0].IsEmpty() {
		return s2.Point{}, false
	}
	e := q.poly.Edge(int(res[0].EdgeID()))
	return s2.Project(x, e.V0, e.V1), true
}

// project returns x when the polygon contains it, and the closest boundary
// point otherwise.
func (q *polygonQuery) project(x s2.Point) (s2.Point, bool) {
	if q.poly.ContainsPoint(x) {
		return x, true
	}
	return q.boundaryProjection(x)
}

// covers reports whether x is inside the polygon or on its boundary.
func (q *polygonQuery) covers(x s2.Point) bool {
	p, ok := q.project(x)
	return ok && coincide(p, x)
}

// projectOnPolygon returns the point of p closest to x; false for the empty
// polygon.
func projectOnPolygon(p *Polygon, x s2.Point) (s2.Point, bool) {
	if p.IsEmpty() {
		return s2.Point{}, false
	}
	return newPolygonQuery(p).project(x)
}

// splitLine cuts line wherever it crosses or touches the polygon boundary
// and sorts the pieces into those covered by the polygon and those outside.
func splitLine(line s2.Polyline, q *polygonQuery) (inside, outside []s2.Polyline) {
	var cur s2.Polyline
	curInside := false
	flush := func() {
		if len(cur) < 2 {
			return
		}
		if curInside {
			inside = append(inside, cur)
		} else {
			outside = append(outside, cur)
		}
		cur = nil
	}
	emit := func(a, b s2.Point, in bool) {
		if len(cur) > 0 && in == curInside && cur[len(cur)-1] == a {
			cur = append(cur, b)
			return
		}
		flush()
		cur = s2.Polyline{a, b}
		curInside = in
	}

	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		prev := a
		for _, c := range append(edgeCuts(a, b, q.poly), b) {
			if c == prev {
				continue
			}
			emit(prev, c, q.covers(s2.Interpolate(0.5, prev, c)))
			prev = c
		}
	}
	flush()
	return inside, outside
}

// edgeCuts returns the points strictly inside edge ab where the polygon
// boundary crosses it or where a polygon vertex lies on it, ordered from a
// to b.
func edgeCuts(a, b s2.Point, poly *s2.Polygon) []s2.Point {
	var cuts []s2.Point
	crosser := s2.NewEdgeCrosser(a, b)
	for i := 0; i < poly.NumEdges(); i++ {
		e := poly.Edge(i)
		if crosser.CrossingSign(e.V0, e.V1) == s2.Cross {
			cuts = append(cuts, s2.Intersection(a, b, e.V0, e.V1))
		}
		if e.V0 != a && e.V0 != b && s2.DistanceFromSegment(e.V0, a, b) <= ProjectionTolerance {
			cuts = append(cuts, e.V0)
		}
	}
	sort.Slice(cuts, func(i, j int) bool {
		return s2.DistanceFraction(cuts[i], a, b) < s2.DistanceFraction(cuts[j], a, b)
	})
	return cuts
}

// IntersectionPieces returns the parts of l covered by p.
func IntersectionPieces(l *LineString, p *Polygon) []s2.Polyline {
	if p.IsEmpty() {
		return nil
	}
	inside, _ := splitLine(l.line, newPolygonQuery(p))
	return inside
}

// DifferencePieces returns the parts of l not covered by p.
func DifferencePieces(l *LineString, p *Polygon) []s2.Polyline {
	if p.IsEmpty() {
		return []s2.Polyline{append(s2.Polyline(nil), l.line...)}
	}
	_, outside := splitLine(l.line, newPolygonQuery(p))
	return outside
}
