package cellindex

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"

	"github.com/squiidz/geoindex/geo"
)

// KeyTag prefixes every geo key so it can share a key space with other
// encodings.
const KeyTag = "GC"

// KeyLen is the length of an encoded key: the tag and 16 hex digits.
const KeyLen = len(KeyTag) + 16

// EntrySeparator ends the cell key inside an entry key; the primary key
// follows it.
const EntrySeparator = '\x00'

// EncodeKey returns the tag followed by the zero-padded lowercase hex id.
// Lexicographic order of keys equals numeric order of ids.
func EncodeKey(id s2.CellID) string {
	return fmt.Sprintf("%s%016x", KeyTag, uint64(id))
}

// DecodeKey parses a key produced by EncodeKey.
func DecodeKey(key string) (s2.CellID, error) {
	if len(key) != KeyLen {
		return 0, eris.Wrapf(geo.ErrParse, "cellindex: key %q has length %d, want %d", key, len(key), KeyLen)
	}
	if key[:len(KeyTag)] != KeyTag {
		return 0, eris.Wrapf(geo.ErrParse, "cellindex: key %q does not start with %s", key, KeyTag)
	}
	n, err := parseHex(key[len(KeyTag):])
	if err != nil {
		return 0, eris.Wrapf(geo.ErrParse, "cellindex: key %q: %v", key, err)
	}
	return s2.CellID(n), nil
}

// parseHex accepts exactly the lowercase digits EncodeKey writes.
func parseHex(s string) (uint64, error) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return 0, eris.Errorf("invalid hex digit %q", c)
		}
	}
	return strconv.ParseUint(s, 16, 64)
}

// EntryKey builds the storage key of one index entry.
func EntryKey(id s2.CellID, primary string) []byte {
	k := make([]byte, 0, KeyLen+1+len(primary))
	k = append(k, EncodeKey(id)...)
	k = append(k, EntrySeparator)
	return append(k, primary...)
}

// SplitEntryKey returns the cell and primary key of an entry key.
func SplitEntryKey(key []byte) (s2.CellID, string, error) {
	if len(key) < KeyLen+1 || key[KeyLen] != EntrySeparator {
		return 0, "", eris.Wrapf(geo.ErrParse, "cellindex: malformed entry key %q", key)
	}
	id, err := DecodeKey(string(key[:KeyLen]))
	if err != nil {
		return 0, "", err
	}
	return id, string(key[KeyLen+1:]), nil
}

// CellFromEntryKey decodes the cell portion of an entry key.
func CellFromEntryKey(key []byte) (s2.CellID, error) {
	id, _, err := SplitEntryKey(key)
	return id, err
}

// EntryPrefix is the common prefix of all entry keys.
func EntryPrefix() []byte { return []byte(KeyTag) }

// hasTag reports whether key lives in the geo key space.
func hasTag(key []byte) bool { return bytes.HasPrefix(key, []byte(KeyTag)) }
