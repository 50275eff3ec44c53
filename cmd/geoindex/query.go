package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/squiidz/geoindex"
)

var intersectingCmd = &cobra.Command{
	Use:   "intersecting <geojson|@file|->",
	Short: "Find features intersecting a geometry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		q, err := readGeometry(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		items, serr := s.Intersecting(ctx, q, limit)
		if items == nil {
			return serr
		}
		if err := writeItems(cmd.OutOrStdout(), items); err != nil {
			return err
		}
		return serr
	},
}

var withinCmd = &cobra.Command{
	Use:   "within <polygon|@file|->",
	Short: "Find features inside a polygon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		poly, err := readPolygon(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		items, serr := s.Within(ctx, poly, limit)
		if items == nil {
			return serr
		}
		if err := writeItems(cmd.OutOrStdout(), items); err != nil {
			return err
		}
		return serr
	},
}

// writeItems prints items, including the partial results of an interrupted
// query.
func writeItems(w io.Writer, items []geoindex.Item) error {
	docs, err := featureDocs(items)
	if err != nil {
		return err
	}
	return writeJSON(w, docs)
}

func init() {
	intersectingCmd.Flags().Int("limit", 0, "stop after this many results (0 = all)")
	withinCmd.Flags().Int("limit", 0, "stop after this many results (0 = all)")
	rootCmd.AddCommand(intersectingCmd, withinCmd)
}
