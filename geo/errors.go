package geo

import "github.com/rotisserie/eris"

var (
	// ErrParse is returned for malformed GeoJSON structure, arity, type or
	// index key.
	ErrParse = eris.New("geo: parse error")
	// ErrRange is returned when a latitude or longitude falls outside its domain.
	ErrRange = eris.New("geo: coordinate out of range")
	// ErrUnsupportedGeometry is returned for valid GeoJSON types this package
	// does not model (multi geometries, collections and features).
	ErrUnsupportedGeometry = eris.New("geo: unsupported geometry type")
)
