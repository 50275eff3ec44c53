package geoindex

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
)

// record is the per-document row. Cells lists the index entries written for
// the document so they can be removed without recomputing the covering.
type record struct {
	Key     string
	Payload []byte
	Cells   []s2.CellID
	Hash    []byte
}

func newRecord(key string, payload, geometry []byte, cells []s2.CellID) *record {
	r := &record{Key: key, Payload: payload, Cells: cells}
	r.genHash(geometry)
	return r
}

func (r *record) key() []byte {
	return genDocKey(r.Key)
}

// genHash fingerprints the stored geometry; entries are rewritten only when
// it changes.
func (r *record) genHash(geometry []byte) {
	h := sha256.Sum256(geometry)
	r.Hash = h[:]
}

func (r *record) sameGeometry(o *record) bool {
	return o != nil && bytes.Equal(r.Hash, o.Hash)
}

func encodeRecord(r *record) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	if err := json.NewEncoder(buffer).Encode(r); err != nil {
		return nil, eris.Wrap(err, "geoindex: encode record")
	}
	return buffer.Bytes(), nil
}

func decodeRecord(b []byte) (*record, error) {
	r := &record{}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, eris.Wrap(err, "geoindex: decode record")
	}
	return r, nil
}

// staleCells returns the cells of old that are not in cur.
func staleCells(old, cur []s2.CellID) []s2.CellID {
	keep := make(map[s2.CellID]bool, len(cur))
	for _, c := range cur {
		keep[c] = true
	}
	var stale []s2.CellID
	for _, c := range old {
		if !keep[c] {
			stale = append(stale, c)
		}
	}
	return stale
}
