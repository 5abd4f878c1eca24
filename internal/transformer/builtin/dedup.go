// Package builtin contains the record transformers selectable from a pipeline
// config.
//
// Dedup drops records whose key was already seen during the run. The key is
// the concatenation of the configured fields:
//
//   - "name", "description": the placemark text (absent -> "\x00")
//   - "latitude", "longitude": the parsed coordinate, shortest round-trip form
//   - any other name: the value of the first attribute with that header
//
// Only the 64-bit xxh3 hash of each key is retained, so memory stays at a few
// bytes per distinct record. Run Dedup after Normalize so equivalent Unicode
// spellings collapse to one key.
package builtin

import (
	"strconv"

	"github.com/zeebo/xxh3"

	"csvkml/internal/parser/csv"
)

// DefaultDedupKeys dedups on position alone.
var DefaultDedupKeys = []string{"latitude", "longitude"}

// Dedup is not safe for concurrent use.
type Dedup struct {
	Keys []string

	seen map[uint64]struct{}
	buf  []byte
}

// NewDedup returns a Dedup over keys, or DefaultDedupKeys when keys is empty.
func NewDedup(keys []string) *Dedup {
	if len(keys) == 0 {
		keys = DefaultDedupKeys
	}
	return &Dedup{Keys: keys, seen: make(map[uint64]struct{})}
}

// Seen returns the number of distinct keys observed.
func (d *Dedup) Seen() int { return len(d.seen) }

// Apply implements transformer.Transformer.
func (d *Dedup) Apply(rec *csv.Record) (bool, string) {
	h := d.hash(rec)
	if _, dup := d.seen[h]; dup {
		return false, "duplicate"
	}
	d.seen[h] = struct{}{}
	return true, ""
}

func (d *Dedup) hash(rec *csv.Record) uint64 {
	b := d.buf[:0]
	for i, k := range d.Keys {
		if i > 0 {
			b = append(b, '\x1f')
		}
		switch k {
		case "name":
			b = appendOpt(b, rec.Name)
		case "description":
			b = appendOpt(b, rec.Description)
		case "latitude":
			b = strconv.AppendFloat(b, rec.Latitude, 'g', -1, 64)
		case "longitude":
			b = strconv.AppendFloat(b, rec.Longitude, 'g', -1, 64)
		default:
			found := false
			for _, a := range rec.Attributes {
				if a.Name == k {
					b = append(b, a.Value...)
					found = true
					break
				}
			}
			if !found {
				b = append(b, '\x00')
			}
		}
	}
	d.buf = b
	return xxh3.Hash(b)
}

func appendOpt(b []byte, s *string) []byte {
	if s == nil {
		return append(b, '\x00')
	}
	return append(b, *s...)
}
