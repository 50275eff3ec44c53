package main

import (
	"github.com/spf13/cobra"

	"github.com/squiidz/geoindex/cellindex"
)

var keysCmd = &cobra.Command{
	Use:   "keys <geojson|@file|->",
	Short: "Print the index keys of a geometry",
	Long:  "Computes the cell covering of a GeoJSON geometry and prints its index keys. With --key, prints the keys a stored feature is indexed under.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if key != "" {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			keys, err := s.IndexKeys(key)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), keys)
		}

		if len(args) == 0 {
			return cmd.Usage()
		}
		g, err := readGeometry(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		goal, _ := cmd.Flags().GetInt("goal")
		if goal <= 0 {
			goal = cfg.Index.GoalCells
		}
		keys, err := cellindex.IndexKeys(g, goal)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), keys)
	},
}

func init() {
	keysCmd.Flags().String("key", "", "print the keys of a stored feature")
	keysCmd.Flags().Int("goal", 0, "covering goal cells (default index.goal_cells)")
	rootCmd.AddCommand(keysCmd)
}
