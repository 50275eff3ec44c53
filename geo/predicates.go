package geo

import (
	"github.com/rotisserie/eris"
)

// Intersects reports whether a and b share at least one point. Boundaries
// count. It is symmetric, and the empty polygon intersects nothing.
func Intersects(a, b Geometry) (bool, error) {
	return Dispatch(a, Visitor[bool]{
		OnPoint: func(p Point) (bool, error) { return pointIntersects(p, b) },
		OnLine:  func(l *LineString) (bool, error) { return lineIntersects(l, b) },
		OnPolygon: func(p *Polygon) (bool, error) {
			return polygonIntersects(p, b)
		},
	})
}

func pointIntersects(p Point, b Geometry) (bool, error) {
	return Dispatch(b, Visitor[bool]{
		OnPoint: func(q Point) (bool, error) { return coincide(p.v, q.v), nil },
		OnLine:  func(l *LineString) (bool, error) { return pointOnLine(p, l), nil },
		OnPolygon: func(poly *Polygon) (bool, error) {
			return pointOnPolygon(p, poly), nil
		},
	})
}

func lineIntersects(l *LineString, b Geometry) (bool, error) {
	return Dispatch(b, Visitor[bool]{
		OnPoint: func(q Point) (bool, error) { return pointOnLine(q, l), nil },
		OnLine:  func(o *LineString) (bool, error) { return linesIntersect(l, o), nil },
		OnPolygon: func(poly *Polygon) (bool, error) {
			return lineIntersectsPolygon(l, poly), nil
		},
	})
}

func polygonIntersects(p *Polygon, b Geometry) (bool, error) {
	return Dispatch(b, Visitor[bool]{
		OnPoint: func(q Point) (bool, error) { return pointOnPolygon(q, p), nil },
		OnLine:  func(l *LineString) (bool, error) { return lineIntersectsPolygon(l, p), nil },
		OnPolygon: func(o *Polygon) (bool, error) {
			if p.IsEmpty() || o.IsEmpty() {
				return false, nil
			}
			return p.poly.Intersects(o.poly), nil
		},
	})
}

func pointOnLine(p Point, l *LineString) bool {
	return coincide(projectOnLine(l, p.v), p.v)
}

func pointOnPolygon(p Point, poly *Polygon) bool {
	proj, ok := projectOnPolygon(poly, p.v)
	return ok && coincide(proj, p.v)
}

// linesIntersect checks crossings both ways and the endpoints explicitly, so
// a line that only touches the other at an endpoint is caught regardless of
// argument order.
func linesIntersect(a, b *LineString) bool {
	if a.line.Intersects(&b.line) || b.line.Intersects(&a.line) {
		return true
	}
	for _, ends := range [][2]*LineString{{a, b}, {b, a}} {
		line, other := ends[0].line, ends[1]
		if pointOnLine(Point{v: line[0]}, other) || pointOnLine(Point{v: line[len(line)-1]}, other) {
			return true
		}
	}
	return false
}

func lineIntersectsPolygon(l *LineString, poly *Polygon) bool {
	if poly.IsEmpty() {
		return false
	}
	q := newPolygonQuery(poly)
	for _, v := range l.line {
		if q.covers(v) {
			return true
		}
	}
	for _, loop := range poly.poly.Loops() {
		for _, v := range loop.Vertices() {
			if pointOnLine(Point{v: v}, l) {
				return true
			}
		}
	}
	inside, _ := splitLine(l.line, q)
	return len(inside) > 0
}

// Includes reports whether every point of g lies in poly, boundary included.
// For a point this is the same test as Intersects.
func Includes(poly *Polygon, g Geometry) (bool, error) {
	if poly == nil {
		return false, eris.Wrap(ErrParse, "geo: nil polygon")
	}
	return Dispatch(g, Visitor[bool]{
		OnPoint: func(p Point) (bool, error) { return pointOnPolygon(p, poly), nil },
		OnLine: func(l *LineString) (bool, error) {
			if poly.IsEmpty() {
				return false, nil
			}
			return len(DifferencePieces(l, poly)) == 0, nil
		},
		OnPolygon: func(o *Polygon) (bool, error) {
			if poly.IsEmpty() {
				return false, nil
			}
			return poly.poly.Contains(o.poly), nil
		},
	})
}
