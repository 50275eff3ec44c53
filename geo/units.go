package geo

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Unit is a length unit name.
type Unit string

const (
	Meter        Unit = "m"
	Kilometer    Unit = "km"
	Mile         Unit = "mi"
	NauticalMile Unit = "nm"
	Foot         Unit = "ft"
)

// meters per unit
var unitFactors = map[Unit]float64{
	Meter:        1,
	Kilometer:    1000,
	Mile:         1609.344,
	NauticalMile: 1852,
	Foot:         0.3048,
}

// ParseUnit accepts one of m, km, mi, nm, ft.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.TrimSpace(s))
	if _, ok := unitFactors[u]; !ok {
		return "", eris.Wrapf(ErrParse, "geo: unrecognized distance unit %q", s)
	}
	return u, nil
}

// Meters returns the length of one u in meters.
func (u Unit) Meters() (float64, error) {
	f, ok := unitFactors[u]
	if !ok {
		return 0, eris.Wrapf(ErrParse, "geo: unrecognized distance unit %q", string(u))
	}
	return f, nil
}

// Convert expresses d, measured in from, in the unit to.
func Convert(d float64, from, to Unit) (float64, error) {
	f, err := from.Meters()
	if err != nil {
		return 0, err
	}
	t, err := to.Meters()
	if err != nil {
		return 0, err
	}
	return d * f / t, nil
}
