package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/squiidz/geoindex"
	"github.com/squiidz/geoindex/geo"
)

type neighborDoc struct {
	Distance float64         `json:"dist"`
	Unit     geo.Unit        `json:"unit"`
	Doc      json.RawMessage `json:"doc"`
}

var nearestCmd = &cobra.Command{
	Use:   "nearest <lat> <lng>",
	Short: "Find the features closest to a point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		center, err := parseLatLng(args[0], args[1])
		if err != nil {
			return err
		}
		unit, err := unitFlag(cmd)
		if err != nil {
			return err
		}
		maxResults, _ := cmd.Flags().GetInt("max-results")
		maxDist, _ := cmd.Flags().GetFloat64("max-dist")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		found, serr := s.Nearest(ctx, center, geoindex.NearestOptions{
			MaxResults:  maxResults,
			MaxDistance: maxDist,
			Unit:        unit,
		})
		if found == nil {
			return serr
		}
		out := make([]neighborDoc, 0, len(found))
		for _, n := range found {
			b, err := n.Item.Encode()
			if err != nil {
				return err
			}
			out = append(out, neighborDoc{Distance: n.Distance, Unit: unit, Doc: b})
		}
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		return serr
	},
}

func init() {
	nearestCmd.Flags().Int("max-results", 100, "maximum number of results")
	nearestCmd.Flags().Float64("max-dist", 0, "search radius in --unit (default 100 km)")
	nearestCmd.Flags().String("unit", "", "distance unit: m, km, mi, nm, ft (default distance.unit)")
	rootCmd.AddCommand(nearestCmd)
}
