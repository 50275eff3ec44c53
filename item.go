package geoindex

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/squiidz/geoindex/cellindex"
	"github.com/squiidz/geoindex/geo"
)

var (
	ItemErrNoGeometry = eris.New("item has no geometry")
	ItemErrInvalidKey = eris.New("invalid item key")
)

// Item is a document stored in the index.
type Item interface {
	// Key is the primary key; it must be non-empty and must not contain
	// the entry separator byte (0x00).
	Key() string
	Geometry() geo.Geometry
	Encode() ([]byte, error)
}

// Decoder rebuilds an Item from the bytes its Encode produced.
type Decoder func([]byte) (Item, error)

func isItemValid(itm Item) error {
	k := itm.Key()
	if k == "" || strings.IndexByte(k, cellindex.EntrySeparator) >= 0 {
		return eris.Wrapf(ItemErrInvalidKey, "geoindex: key %q", k)
	}
	if itm.Geometry() == nil {
		return eris.Wrapf(ItemErrNoGeometry, "geoindex: key %q", k)
	}
	return nil
}

// Feature is a GeoJSON Feature document.
type Feature struct {
	ID         string
	Geom       geo.Geometry
	Properties map[string]any
}

func (f *Feature) Key() string            { return f.ID }
func (f *Feature) Geometry() geo.Geometry { return f.Geom }

func (f *Feature) Encode() ([]byte, error) {
	g, err := geo.ToGeoJSON(f.Geom)
	if err != nil {
		return nil, err
	}
	props := f.Properties
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(map[string]any{
		"type":       "Feature",
		"id":         f.ID,
		"geometry":   g,
		"properties": props,
	})
}

type featureDoc struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// DecodeFeature is the Decoder for Feature documents.
func DecodeFeature(data []byte) (Item, error) {
	var doc featureDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(geo.ErrParse, "geoindex: invalid feature: %v", err)
	}
	if doc.Type != "Feature" {
		return nil, eris.Wrapf(geo.ErrParse, "geoindex: expected a Feature, got %q", doc.Type)
	}
	id, err := featureID(doc.ID)
	if err != nil {
		return nil, err
	}
	if len(doc.Geometry) == 0 || bytes.Equal(doc.Geometry, []byte("null")) {
		return nil, eris.Wrapf(ItemErrNoGeometry, "geoindex: feature %q", id)
	}
	g, err := geo.ParseGeoJSON(doc.Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "geoindex: feature %q", id)
	}
	return &Feature{ID: id, Geom: g, Properties: doc.Properties}, nil
}

func featureID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", eris.Wrap(ItemErrInvalidKey, "geoindex: feature has no id")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", eris.Wrapf(ItemErrInvalidKey, "geoindex: feature id: %v", err)
	}
	switch id := v.(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	}
	return "", eris.Wrapf(ItemErrInvalidKey, "geoindex: feature id must be a string or number, got %s", raw)
}
