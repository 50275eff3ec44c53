package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/squiidz/geoindex/geo"
)

var distanceCmd = &cobra.Command{
	Use:   "distance <lat> <lng> <geojson|@file|->",
	Short: "Measure the geodesic distance from a point to a geometry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseLatLng(args[0], args[1])
		if err != nil {
			return err
		}
		g, err := readGeometry(args[2], cmd.InOrStdin())
		if err != nil {
			return err
		}
		unit, err := unitFlag(cmd)
		if err != nil {
			return err
		}
		d, err := geo.Distance(p, g, ellipsoidFlag(cmd))
		if err != nil {
			return err
		}
		d, err = geo.Convert(d, geo.Meter, unit)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{"dist": d, "unit": unit})
	},
}

var circleCmd = &cobra.Command{
	Use:   "circle <lat> <lng> <radius>",
	Short: "Print a polygon approximating a geodesic circle",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		center, err := parseLatLng(args[0], args[1])
		if err != nil {
			return err
		}
		radius, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return eris.Wrapf(geo.ErrParse, "radius %q", args[2])
		}
		unit, err := unitFlag(cmd)
		if err != nil {
			return err
		}
		meters, err := geo.Convert(radius, unit, geo.Meter)
		if err != nil {
			return err
		}
		vertices, _ := cmd.Flags().GetInt("vertices")
		poly, err := geo.Circle(center, meters, vertices, ellipsoidFlag(cmd))
		if err != nil {
			return err
		}
		b, err := geo.MarshalGeoJSON(poly)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(b, '\n'))
		return err
	},
}

func parseLatLng(lat, lng string) (geo.Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Point{}, eris.Wrapf(geo.ErrParse, "latitude %q", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return geo.Point{}, eris.Wrapf(geo.ErrParse, "longitude %q", lng)
	}
	return geo.NewPoint(la, ln)
}

func unitFlag(cmd *cobra.Command) (geo.Unit, error) {
	u, _ := cmd.Flags().GetString("unit")
	if u == "" {
		u = cfg.Distance.Unit
	}
	return geo.ParseUnit(u)
}

func ellipsoidFlag(cmd *cobra.Command) *geo.Ellipsoid {
	if sphere, _ := cmd.Flags().GetBool("unit-sphere"); sphere {
		return geo.UnitSphere
	}
	return geo.WGS84
}

func init() {
	for _, c := range []*cobra.Command{distanceCmd, circleCmd} {
		c.Flags().String("unit", "", "distance unit: m, km, mi, nm, ft (default distance.unit)")
		c.Flags().Bool("unit-sphere", false, "measure on the unit sphere instead of WGS84")
	}
	circleCmd.Flags().Int("vertices", 32, "number of polygon vertices")
	rootCmd.AddCommand(distanceCmd, circleCmd)
}
