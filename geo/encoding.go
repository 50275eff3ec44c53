package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

const srid = 4326

// ToGeom converts g to its go-geom form with SRID 4326.
func ToGeom(g Geometry) (geom.T, error) {
	return Dispatch(g, Visitor[geom.T]{
		OnPoint: func(p Point) (geom.T, error) {
			return geom.NewPointFlat(geom.XY, []float64{p.Lng(), p.Lat()}).SetSRID(srid), nil
		},
		OnLine: func(l *LineString) (geom.T, error) {
			return geom.NewLineStringFlat(geom.XY, flatCoords(l.Points(), false)).SetSRID(srid), nil
		},
		OnPolygon: func(p *Polygon) (geom.T, error) {
			var flat []float64
			var ends []int
			for _, r := range p.Rings() {
				flat = append(flat, flatCoords(r, true)...)
				ends = append(ends, len(flat))
			}
			return geom.NewPolygonFlat(geom.XY, flat, ends).SetSRID(srid), nil
		},
	})
}

func flatCoords(points []Point, closed bool) []float64 {
	flat := make([]float64, 0, 2*len(points)+2)
	for _, p := range points {
		flat = append(flat, p.Lng(), p.Lat())
	}
	if closed && len(points) > 0 {
		flat = append(flat, points[0].Lng(), points[0].Lat())
	}
	return flat
}

// FromGeom converts a go-geom geometry, applying the same validation as
// FromGeoJSON.
func FromGeom(t geom.T) (Geometry, error) {
	if t == nil {
		return nil, eris.Wrap(ErrParse, "geo: nil geometry")
	}
	switch t.Layout() {
	case geom.XY:
	case geom.XYZ, geom.XYZM:
		return nil, eris.Wrap(ErrUnsupportedGeometry, "geo: a third (altitude) coordinate is not supported")
	default:
		return nil, eris.Wrapf(ErrParse, "geo: unsupported coordinate layout %v", t.Layout())
	}
	switch g := t.(type) {
	case *geom.Point:
		return NewPoint(g.Y(), g.X())
	case *geom.LineString:
		points, err := pointsFromCoords(g.Coords())
		if err != nil {
			return nil, err
		}
		return NewLineString(points)
	case *geom.Polygon:
		if g.NumLinearRings() == 0 {
			return EmptyPolygon(), nil
		}
		rings := make([][]Point, g.NumLinearRings())
		for i := range rings {
			ring, err := pointsFromCoords(g.LinearRing(i).Coords())
			if err != nil {
				return nil, err
			}
			rings[i] = ring
		}
		return buildPolygon(rings)
	case *geom.MultiPoint, *geom.MultiLineString, *geom.MultiPolygon, *geom.GeometryCollection:
		return nil, eris.Wrapf(ErrUnsupportedGeometry, "geo: %T is not supported", t)
	}
	return nil, eris.Wrapf(ErrParse, "geo: unknown geometry %T", t)
}

func pointsFromCoords(coords []geom.Coord) ([]Point, error) {
	points := make([]Point, len(coords))
	for i, c := range coords {
		p, err := NewPoint(c.Y(), c.X())
		if err != nil {
			return nil, err
		}
		points[i] = p
	}
	return points, nil
}

// MarshalGeoJSON encodes g as a GeoJSON geometry object.
func MarshalGeoJSON(g Geometry) ([]byte, error) {
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}
	data, err := geojson.Marshal(t)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode geojson")
	}
	return data, nil
}

// MarshalWKB encodes g as little-endian WKB.
func MarshalWKB(g Geometry) ([]byte, error) {
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}
	data, err := wkb.Marshal(t, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode wkb")
	}
	return data, nil
}

// UnmarshalWKB decodes a WKB geometry.
func UnmarshalWKB(data []byte) (Geometry, error) {
	t, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrapf(ErrParse, "geo: decode wkb: %v", err)
	}
	return FromGeom(t)
}
