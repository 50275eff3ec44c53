package geoindex

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/squiidz/geoindex/geo"
)

const docPrefix = "doc:"

func genDocKey(key string) []byte {
	return []byte(docPrefix + key)
}

// searchCap returns a spherical cap containing every point within
// radius meters (geodesic, on e) of center. The sphere radius used is the
// polar radius, the smallest of the ellipsoid, with a little slack.
func searchCap(center geo.Point, radius float64, e *geo.Ellipsoid) s2.Cap {
	minRadius := e.Radius * (1 - e.Flattening)
	angle := s1.Angle(radius / minRadius * 1.01)
	if angle > math.Pi {
		angle = math.Pi
	}
	return s2.CapFromCenterAngle(center.S2(), angle)
}
