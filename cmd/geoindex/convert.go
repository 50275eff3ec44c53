package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/squiidz/geoindex/geo"
)

var convertCmd = &cobra.Command{
	Use:   "convert <value> <from> <to>",
	Short: "Convert a distance between units",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(geo.ErrParse, "value %q", args[0])
		}
		from, err := geo.ParseUnit(args[1])
		if err != nil {
			return err
		}
		to, err := geo.ParseUnit(args[2])
		if err != nil {
			return err
		}
		out, err := geo.Convert(v, from, to)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write([]byte(strconv.FormatFloat(out, 'g', -1, 64) + "\n"))
		return err
	},
}

func init() { rootCmd.AddCommand(convertCmd) }
