package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestWKBRoundTrip(t *testing.T) {
	geoms := []Geometry{
		MustPoint(-33.86, 151.21),
		line(t, [2]float64{0, 0}, [2]float64{10, 5}, [2]float64{20, -5}),
		unitSquare(t),
		EmptyPolygon(),
	}
	withHole, err := NewPolygon(
		ring([2]float64{0, 0}, [2]float64{4, 0}, [2]float64{4, 4}, [2]float64{0, 4}),
		ring([2]float64{1, 1}, [2]float64{2, 1}, [2]float64{2, 2}, [2]float64{1, 2}),
	)
	require.NoError(t, err)
	geoms = append(geoms, withHole)

	for _, g := range geoms {
		b, err := MarshalWKB(g)
		require.NoError(t, err)
		back, err := UnmarshalWKB(b)
		require.NoError(t, err)
		assert.True(t, Equal(g, back), "%s", g.Kind())
	}
}

func TestToGeomSRID(t *testing.T) {
	tg, err := ToGeom(MustPoint(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 4326, tg.SRID())
	assert.InDeltaSlice(t, []float64{2, 1}, tg.FlatCoords(), 1e-12)
}

func TestFromGeomRejects(t *testing.T) {
	_, err := FromGeom(geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3}))
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)

	_, err = FromGeom(geom.NewMultiPointFlat(geom.XY, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)

	_, err = FromGeom(nil)
	assert.ErrorIs(t, err, ErrParse)

	_, err = UnmarshalWKB([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrParse)
}
