package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/squiidz/geoindex"
	"github.com/squiidz/geoindex/geo"
)

// openStore opens the configured store with the Feature decoder.
func openStore() (*geoindex.Store, error) {
	opts := []geoindex.Option{
		geoindex.WithCovering(cfg.Index.Covering()),
		geoindex.WithLeafSize(cfg.Index.LeafSize),
		geoindex.WithFanout(cfg.Index.Fanout),
		geoindex.WithLogger(zap.L()),
	}
	if cfg.Store.InMemory {
		opts = append(opts, geoindex.WithInMemory())
	}
	s := geoindex.NewStore(cfg.Store.Path, opts...)
	if err := s.Open(geoindex.DecodeFeature); err != nil {
		return nil, err
	}
	return s, nil
}

// readArg returns arg itself, the contents of the file named by @path, or
// stdin for "-".
func readArg(arg string, stdin io.Reader) ([]byte, error) {
	switch {
	case arg == "-":
		b, err := io.ReadAll(stdin)
		return b, eris.Wrap(err, "read stdin")
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		return b, eris.Wrapf(err, "read %s", arg[1:])
	}
	return []byte(arg), nil
}

func readGeometry(arg string, stdin io.Reader) (geo.Geometry, error) {
	b, err := readArg(arg, stdin)
	if err != nil {
		return nil, err
	}
	return geo.ParseGeoJSON(b)
}

func readPolygon(arg string, stdin io.Reader) (*geo.Polygon, error) {
	g, err := readGeometry(arg, stdin)
	if err != nil {
		return nil, err
	}
	poly, ok := g.(*geo.Polygon)
	if !ok {
		return nil, eris.Wrapf(geo.ErrParse, "expected a Polygon, got %s", g.Kind())
	}
	return poly, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}

// featureDocs turns items into their stored GeoJSON documents.
func featureDocs(items []geoindex.Item) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, itm := range items {
		b, err := itm.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
