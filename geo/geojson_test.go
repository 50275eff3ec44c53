package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func mustParse(t *testing.T, doc string) Geometry {
	t.Helper()
	g, err := ParseGeoJSON([]byte(doc))
	require.NoError(t, err, doc)
	return g
}

func TestParsePoint(t *testing.T) {
	g := mustParse(t, `{"type":"Point","coordinates":[2.35,48.85]}`)
	p, ok := g.(Point)
	require.True(t, ok)
	assert.InDelta(t, 48.85, p.Lat(), 1e-12)
	assert.InDelta(t, 2.35, p.Lng(), 1e-12)
}

func TestParseLongitude180(t *testing.T) {
	g := mustParse(t, `{"type":"Point","coordinates":[180,10]}`)
	assert.InDelta(t, -180, g.(Point).Lng(), 1e-12)
	assert.True(t, Equal(g, MustPoint(10, -180)))
}

func TestParseNullCRS(t *testing.T) {
	g := mustParse(t, `{"type":"Point","coordinates":[1,1],"crs":null}`)
	assert.Equal(t, KindPoint, g.Kind())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not an object", `[1,2]`, ErrParse},
		{"invalid json", `{"type":`, ErrParse},
		{"no type", `{"coordinates":[1,2]}`, ErrParse},
		{"type not string", `{"type":1,"coordinates":[1,2]}`, ErrParse},
		{"unknown type", `{"type":"Circle","coordinates":[1,2]}`, ErrParse},
		{"no coordinates", `{"type":"Point"}`, ErrParse},
		{"crs", `{"type":"Point","coordinates":[1,2],"crs":{"type":"name"}}`, ErrParse},
		{"one coordinate", `{"type":"Point","coordinates":[1]}`, ErrParse},
		{"four coordinates", `{"type":"Point","coordinates":[1,2,3,4]}`, ErrParse},
		{"altitude", `{"type":"Point","coordinates":[1,2,3]}`, ErrUnsupportedGeometry},
		{"string coordinate", `{"type":"Point","coordinates":["1",2]}`, ErrParse},
		{"latitude range", `{"type":"Point","coordinates":[0,91]}`, ErrRange},
		{"longitude range", `{"type":"Point","coordinates":[-180.5,0]}`, ErrRange},
		{"multipoint", `{"type":"MultiPoint","coordinates":[[1,2]]}`, ErrUnsupportedGeometry},
		{"multipolygon", `{"type":"MultiPolygon","coordinates":[]}`, ErrUnsupportedGeometry},
		{"collection", `{"type":"GeometryCollection","geometries":[]}`, ErrUnsupportedGeometry},
		{"feature", `{"type":"Feature","geometry":null}`, ErrUnsupportedGeometry},
		{"line one point", `{"type":"LineString","coordinates":[[1,2]]}`, ErrParse},
		{"line duplicate vertex", `{"type":"LineString","coordinates":[[1,2],[1,2]]}`, ErrParse},
		{"ring too short", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]}`, ErrParse},
		{"ring duplicate vertex", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,0],[1,1],[0,0]]]}`, ErrParse},
		{"ring not array", `{"type":"Polygon","coordinates":[5]}`, ErrParse},
		{"polygon not array", `{"type":"Polygon","coordinates":{}}`, ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseGeoJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, g)
		})
	}
}

func TestFromGeoJSONDocumentValue(t *testing.T) {
	g, err := FromGeoJSON(map[string]any{
		"type":        "LineString",
		"coordinates": []any{[]any{0.0, 0.0}, []any{1, 1}, []any{int64(2), float32(0)}},
	})
	require.NoError(t, err)
	l := g.(*LineString)
	assert.Equal(t, 3, l.NumPoints())
}

func TestFromGeoJSONNaN(t *testing.T) {
	for _, coords := range [][]any{{math.NaN(), 0.0}, {0.0, math.NaN()}} {
		g, err := FromGeoJSON(map[string]any{"type": "Point", "coordinates": coords})
		assert.ErrorIs(t, err, ErrRange)
		assert.Nil(t, g)
	}
	_, err := FromGeoJSON(map[string]any{
		"type":        "LineString",
		"coordinates": []any{[]any{0.0, 0.0}, []any{math.NaN(), 1.0}},
	})
	assert.ErrorIs(t, err, ErrRange)

	_, err = FromGeom(geom.NewPointFlat(geom.XY, []float64{math.NaN(), 0}))
	assert.ErrorIs(t, err, ErrRange)
}

func TestParsePolygonAutoClose(t *testing.T) {
	open := mustParse(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`)
	closed := mustParse(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)
	assert.True(t, Equal(open, closed))
}

func TestParsePolygonOrientationIgnored(t *testing.T) {
	ccw := mustParse(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)
	cw := mustParse(t, `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`)
	assert.True(t, Equal(ccw, cw))
	ok, err := Includes(cw.(*Polygon), MustPoint(0.5, 0.5))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseEmptyPolygon(t *testing.T) {
	g := mustParse(t, `{"type":"Polygon","coordinates":[]}`)
	assert.True(t, g.(*Polygon).IsEmpty())
}

func TestGeoJSONRoundTrip(t *testing.T) {
	docs := []string{
		`{"type":"Point","coordinates":[-73.5,45.5]}`,
		`{"type":"LineString","coordinates":[[0,0],[10,5],[20,-5]]}`,
		`{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]],[[1,1],[1,2],[2,2],[2,1],[1,1]]]}`,
		`{"type":"Polygon","coordinates":[]}`,
	}
	for _, doc := range docs {
		g := mustParse(t, doc)

		v, err := ToGeoJSON(g)
		require.NoError(t, err)
		b, err := json.Marshal(v)
		require.NoError(t, err)
		assert.True(t, Equal(g, mustParse(t, string(b))), "document value round trip of %s", doc)

		b, err = MarshalGeoJSON(g)
		require.NoError(t, err)
		assert.True(t, Equal(g, mustParse(t, string(b))), "go-geom round trip of %s", doc)
	}
}

func TestToGeoJSONClosesRings(t *testing.T) {
	g := mustParse(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`)
	v, err := ToGeoJSON(g)
	require.NoError(t, err)
	rings := v["coordinates"].([]any)
	require.Len(t, rings, 1)
	ring := rings[0].([]any)
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
}

func TestDispatchNil(t *testing.T) {
	_, err := ToGeoJSON(nil)
	assert.ErrorIs(t, err, ErrParse)
}
