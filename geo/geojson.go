package geo

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Recognized GeoJSON types that are not modelled.
var unsupportedTypes = map[string]bool{
	"MultiPoint":         true,
	"MultiLineString":    true,
	"MultiPolygon":       true,
	"GeometryCollection": true,
	"Feature":            true,
	"FeatureCollection":  true,
}

// ParseGeoJSON decodes a GeoJSON geometry object.
func ParseGeoJSON(data []byte) (Geometry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, eris.Wrapf(ErrParse, "geo: invalid json: %v", err)
	}
	return FromGeoJSON(v)
}

// FromGeoJSON converts a document value (maps, slices and numbers as
// produced by encoding/json) holding a GeoJSON geometry.
func FromGeoJSON(v any) (Geometry, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, eris.Wrapf(ErrParse, "geo: expected a GeoJSON object, got %s", typeName(v))
	}
	if crs, ok := obj["crs"]; ok && crs != nil {
		return nil, eris.Wrap(ErrParse,
			"geo: non-default coordinate reference systems are not supported; the crs field must be null or absent")
	}
	rawType, ok := obj["type"]
	if !ok {
		return nil, eris.Wrap(ErrParse, "geo: GeoJSON object has no type field")
	}
	typ, ok := rawType.(string)
	if !ok {
		return nil, eris.Wrapf(ErrParse, "geo: GeoJSON type must be a string, got %s", typeName(rawType))
	}
	if unsupportedTypes[typ] {
		return nil, eris.Wrapf(ErrUnsupportedGeometry, "geo: GeoJSON type %s is not supported", typ)
	}
	switch typ {
	case "Point", "LineString", "Polygon":
	default:
		return nil, eris.Wrapf(ErrParse, "geo: unrecognized GeoJSON type %q", typ)
	}
	coords, ok := obj["coordinates"]
	if !ok {
		return nil, eris.Wrapf(ErrParse, "geo: GeoJSON %s has no coordinates field", typ)
	}

	switch typ {
	case "Point":
		return parsePosition(coords)
	case "LineString":
		points, err := parsePositions(coords)
		if err != nil {
			return nil, err
		}
		return NewLineString(points)
	default:
		arr, ok := coords.([]any)
		if !ok {
			return nil, eris.Wrapf(ErrParse, "geo: polygon coordinates must be an array, got %s", typeName(coords))
		}
		if len(arr) == 0 {
			return EmptyPolygon(), nil
		}
		rings := make([][]Point, len(arr))
		for i, r := range arr {
			ring, err := parsePositions(r)
			if err != nil {
				return nil, eris.Wrapf(err, "geo: ring %d", i)
			}
			rings[i] = ring
		}
		return buildPolygon(rings)
	}
}

func parsePositions(v any) ([]Point, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, eris.Wrapf(ErrParse, "geo: expected an array of positions, got %s", typeName(v))
	}
	points := make([]Point, len(arr))
	for i, pos := range arr {
		p, err := parsePosition(pos)
		if err != nil {
			return nil, err
		}
		points[i] = p
	}
	return points, nil
}

// parsePosition reads a [lng, lat] pair.
func parsePosition(v any) (Point, error) {
	arr, ok := v.([]any)
	if !ok {
		return Point{}, eris.Wrapf(ErrParse, "geo: expected a position array, got %s", typeName(v))
	}
	switch {
	case len(arr) == 3:
		return Point{}, eris.Wrap(ErrUnsupportedGeometry, "geo: a third (altitude) coordinate is not supported")
	case len(arr) != 2:
		return Point{}, eris.Wrapf(ErrParse, "geo: expected exactly 2 coordinates in a position, got %d", len(arr))
	}
	lng, err := toFloat(arr[0])
	if err != nil {
		return Point{}, err
	}
	lat, err := toFloat(arr[1])
	if err != nil {
		return Point{}, err
	}
	return NewPoint(lat, lng)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, eris.Wrapf(ErrParse, "geo: invalid coordinate %q", n.String())
		}
		return f, nil
	}
	return 0, eris.Wrapf(ErrParse, "geo: expected a number, got %s", typeName(v))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case float64, float32, int, int64, json.Number:
		return "number"
	}
	return "unknown"
}

// ToGeoJSON converts g into a document value.
func ToGeoJSON(g Geometry) (map[string]any, error) {
	return Dispatch(g, Visitor[map[string]any]{
		OnPoint: func(p Point) (map[string]any, error) {
			return map[string]any{"type": "Point", "coordinates": position(p)}, nil
		},
		OnLine: func(l *LineString) (map[string]any, error) {
			return map[string]any{"type": "LineString", "coordinates": positions(l.Points(), false)}, nil
		},
		OnPolygon: func(p *Polygon) (map[string]any, error) {
			rings := p.Rings()
			coords := make([]any, len(rings))
			for i, r := range rings {
				coords[i] = positions(r, true)
			}
			return map[string]any{"type": "Polygon", "coordinates": coords}, nil
		},
	})
}

func position(p Point) []any {
	return []any{p.Lng(), p.Lat()}
}

func positions(points []Point, closed bool) []any {
	out := make([]any, 0, len(points)+1)
	for _, p := range points {
		out = append(out, position(p))
	}
	if closed && len(points) > 0 {
		out = append(out, position(points[0]))
	}
	return out
}
