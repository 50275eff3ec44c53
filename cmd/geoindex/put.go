package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/squiidz/geoindex"
)

var putCmd = &cobra.Command{
	Use:   "put <feature|@file|->...",
	Short: "Index GeoJSON features",
	Long:  "Stores GeoJSON Features, or every Feature of a FeatureCollection, replacing features with the same id.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var items []geoindex.Item
		for _, arg := range args {
			b, err := readArg(arg, cmd.InOrStdin())
			if err != nil {
				return err
			}
			docs, err := splitFeatures(b)
			if err != nil {
				return err
			}
			for _, d := range docs {
				itm, err := geoindex.DecodeFeature(d)
				if err != nil {
					return err
				}
				items = append(items, itm)
			}
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.InsertBatch(ctx, items); err != nil {
			return err
		}
		zap.L().Info("put: indexed features", zap.Int("count", len(items)))
		return nil
	},
}

// splitFeatures returns the features of a FeatureCollection, or b itself.
func splitFeatures(b []byte) ([]json.RawMessage, error) {
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, eris.Wrap(err, "put: decode input")
	}
	if fc.Type == "FeatureCollection" {
		return fc.Features, nil
	}
	return []json.RawMessage{b}, nil
}

func init() { rootCmd.AddCommand(putCmd) }
