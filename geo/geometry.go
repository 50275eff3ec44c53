// Package geo models the geometries that can be indexed: points, line
// strings and polygons on the unit sphere, their GeoJSON form, the exact
// predicates used to re-check index candidates and ellipsoidal distances.
package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
)

// Kind tags the variant held by a Geometry.
type Kind int

const (
	KindPoint Kind = iota
	KindLineString
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindLineString:
		return "LineString"
	case KindPolygon:
		return "Polygon"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Geometry is one of Point, *LineString or *Polygon. The set is closed: the
// marker method is unexported so no other package can add a variant.
// Geometries are immutable once constructed.
type Geometry interface {
	Kind() Kind
	isGeometry()
}

// Visitor holds one handler per variant. Dispatch calls exactly one of them.
type Visitor[T any] struct {
	OnPoint   func(Point) (T, error)
	OnLine    func(*LineString) (T, error)
	OnPolygon func(*Polygon) (T, error)
}

// Dispatch routes g to the handler for its variant.
func Dispatch[T any](g Geometry, v Visitor[T]) (T, error) {
	var zero T
	switch t := g.(type) {
	case Point:
		return v.OnPoint(t)
	case *LineString:
		return v.OnLine(t)
	case *Polygon:
		return v.OnPolygon(t)
	case nil:
		return zero, eris.Wrap(ErrParse, "geo: nil geometry")
	}
	return zero, eris.Wrapf(ErrParse, "geo: unknown geometry %T", g)
}

// Point is a position on the unit sphere.
type Point struct {
	v s2.Point
}

// NewPoint validates lat/lng (in degrees) and returns the point. NaN is out
// of range. Longitude 180 is normalized to -180.
func NewPoint(lat, lng float64) (Point, error) {
	if !(lng >= -180 && lng <= 180) {
		return Point{}, eris.Wrapf(ErrRange, "geo: longitude %v not in [-180, 180]", lng)
	}
	if !(lat >= -90 && lat <= 90) {
		return Point{}, eris.Wrapf(ErrRange, "geo: latitude %v not in [-90, 90]", lat)
	}
	if lng == 180 {
		lng = -180
	}
	return Point{v: s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))}, nil
}

// MustPoint is NewPoint for literals known to be valid.
func MustPoint(lat, lng float64) Point {
	p, err := NewPoint(lat, lng)
	if err != nil {
		panic(err)
	}
	return p
}

// PointFromS2 wraps a unit vector.
func PointFromS2(p s2.Point) Point { return Point{v: p} }

func (Point) Kind() Kind  { return KindPoint }
func (Point) isGeometry() {}

// S2 returns the unit vector of p.
func (p Point) S2() s2.Point { return p.v }

func (p Point) LatLng() s2.LatLng { return s2.LatLngFromPoint(p.v) }

func (p Point) Lat() float64 { return p.LatLng().Lat.Degrees() }

func (p Point) Lng() float64 { return p.LatLng().Lng.Degrees() }

func (p Point) String() string { return fmt.Sprintf("Point(%v, %v)", p.Lat(), p.Lng()) }

// LineString is an ordered sequence of at least two points.
type LineString struct {
	line s2.Polyline
}

// NewLineString builds a line from its vertices. The geometry engine rejects
// consecutive duplicate or antipodal vertices.
func NewLineString(points []Point) (*LineString, error) {
	if len(points) < 2 {
		return nil, eris.Wrapf(ErrParse, "geo: line string needs at least 2 positions, got %d", len(points))
	}
	line := make(s2.Polyline, len(points))
	for i, p := range points {
		line[i] = p.v
	}
	if err := line.Validate(); err != nil {
		return nil, eris.Wrapf(ErrParse, "geo: invalid line string: %v", err)
	}
	return &LineString{line: line}, nil
}

func (*LineString) Kind() Kind  { return KindLineString }
func (*LineString) isGeometry() {}

// S2 returns the underlying polyline. Callers must not modify it.
func (l *LineString) S2() *s2.Polyline { return &l.line }

func (l *LineString) NumPoints() int { return len(l.line) }

func (l *LineString) Points() []Point {
	out := make([]Point, len(l.line))
	for i, v := range l.line {
		out[i] = Point{v: v}
	}
	return out
}

// Polygon is a shell with zero or more holes. The polygon with no loops is
// the degenerate polygon; it intersects nothing.
type Polygon struct {
	poly *s2.Polygon
}

// NewPolygon assembles a polygon from closed or open rings: the shell first,
// then the holes.
func NewPolygon(shell []Point, holes ...[]Point) (*Polygon, error) {
	rings := make([][]Point, 0, len(holes)+1)
	rings = append(rings, shell)
	rings = append(rings, holes...)
	return buildPolygon(rings)
}

// EmptyPolygon returns the degenerate zero-vertex polygon.
func EmptyPolygon() *Polygon { return &Polygon{poly: &s2.Polygon{}} }

func (*Polygon) Kind() Kind  { return KindPolygon }
func (*Polygon) isGeometry() {}

// S2 returns the underlying polygon. Callers must not modify it.
func (p *Polygon) S2() *s2.Polygon { return p.poly }

func (p *Polygon) IsEmpty() bool { return p.poly == nil || p.poly.NumLoops() == 0 }

// Rings returns the loops as open rings, shells counter-clockwise and holes
// clockwise, outermost first.
func (p *Polygon) Rings() [][]Point {
	if p.IsEmpty() {
		return nil
	}
	rings := make([][]Point, 0, p.poly.NumLoops())
	for _, l := range p.poly.Loops() {
		vs := l.Vertices()
		ring := make([]Point, len(vs))
		for i, v := range vs {
			if l.IsHole() {
				ring[len(vs)-1-i] = Point{v: v}
			} else {
				ring[i] = Point{v: v}
			}
		}
		rings = append(rings, ring)
	}
	return rings
}

// Equal reports whether a and b are the same geometry up to floating-point
// precision. Polygon rings may start at any vertex.
func Equal(a, b Geometry) bool {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	switch ta := a.(type) {
	case Point:
		return ta.v.ApproxEqual(b.(Point).v)
	case *LineString:
		return ta.line.ApproxEqual(&b.(*LineString).line)
	case *Polygon:
		tb := b.(*Polygon)
		if ta.IsEmpty() || tb.IsEmpty() {
			return ta.IsEmpty() == tb.IsEmpty()
		}
		if ta.poly.NumLoops() != tb.poly.NumLoops() {
			return false
		}
		for i, l := range ta.poly.Loops() {
			if !loopsApproxEqual(l, tb.poly.Loop(i)) {
				return false
			}
		}
		return true
	}
	return false
}

func loopsApproxEqual(a, b *s2.Loop) bool {
	n := a.NumVertices()
	if n != b.NumVertices() {
		return false
	}
	for off := 0; off < n; off++ {
		if !a.Vertex(0).ApproxEqual(b.Vertex(off)) {
			continue
		}
		ok := true
		for i := 1; i < n && ok; i++ {
			ok = a.Vertex(i).ApproxEqual(b.Vertex(off + i))
		}
		if ok {
			return true
		}
	}
	return false
}
