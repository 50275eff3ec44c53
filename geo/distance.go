package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tidwall/geodesic"
)

// Ellipsoid is an oblate spheroid given by its equatorial radius (meters)
// and flattening.
type Ellipsoid struct {
	Radius     float64
	Flattening float64

	solver *geodesic.Ellipsoid
}

var (
	// WGS84 is the reference ellipsoid used by GPS.
	WGS84 = NewEllipsoid(6378137, 1/298.257223563)
	// UnitSphere measures distances in radians.
	UnitSphere = NewEllipsoid(1, 0)
)

func NewEllipsoid(radius, flattening float64) *Ellipsoid {
	return &Ellipsoid{
		Radius:     radius,
		Flattening: flattening,
		solver:     geodesic.NewEllipsoid(radius, flattening),
	}
}

// Inverse returns the geodesic distance between a and b in the ellipsoid's
// length unit.
func (e *Ellipsoid) Inverse(a, b Point) float64 {
	var s12 float64
	e.solver.Inverse(a.Lat(), a.Lng(), b.Lat(), b.Lng(), &s12, nil, nil)
	return s12
}

// Direct returns the point reached from p after travelling dist along the
// geodesic leaving at azimuth degrees clockwise from north.
func (e *Ellipsoid) Direct(p Point, azimuth, dist float64) (Point, error) {
	var lat, lng float64
	e.solver.Direct(p.Lat(), p.Lng(), azimuth, dist, &lat, &lng, nil)
	return NewPoint(lat, normalizeLng(lng))
}

func normalizeLng(lng float64) float64 {
	lng = math.Remainder(lng, 360)
	if lng == 180 {
		return -180
	}
	return lng
}

// Distance returns the geodesic distance from p to the closest point of g.
//
// For lines and polygons the closest point is found on the sphere and the
// final distance is measured on the ellipsoid, so large distances are
// over-estimated. The empty polygon is infinitely far away.
func Distance(p Point, g Geometry, e *Ellipsoid) (float64, error) {
	if e == nil {
		e = WGS84
	}
	return Dispatch(g, Visitor[float64]{
		OnPoint: func(q Point) (float64, error) {
			return e.Inverse(p, q), nil
		},
		OnLine: func(l *LineString) (float64, error) {
			return e.Inverse(p, Point{v: projectOnLine(l, p.v)}), nil
		},
		OnPolygon: func(poly *Polygon) (float64, error) {
			proj, ok := projectOnPolygon(poly, p.v)
			if !ok {
				return math.Inf(1), nil
			}
			if proj == p.v {
				return 0, nil
			}
			return e.Inverse(p, Point{v: proj}), nil
		},
	})
}

// Circle approximates the set of points at geodesic distance radius from
// center with a polygon of the given number of vertices.
func Circle(center Point, radius float64, vertices int, e *Ellipsoid) (*Polygon, error) {
	if e == nil {
		e = WGS84
	}
	if vertices < 3 {
		return nil, eris.Wrapf(ErrParse, "geo: a circle needs at least 3 vertices, got %d", vertices)
	}
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, eris.Wrapf(ErrParse, "geo: circle radius must be positive, got %v", radius)
	}
	ring := make([]Point, vertices)
	for i := range ring {
		p, err := e.Direct(center, 360*float64(i)/float64(vertices), radius)
		if err != nil {
			return nil, err
		}
		ring[i] = p
	}
	return NewPolygon(ring)
}
