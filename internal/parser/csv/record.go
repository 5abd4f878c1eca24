package csv

import (
	"math"
	"strconv"
	"strings"
)

// Attribute is one free-form key/value pair taken from an extra column.
type Attribute struct {
	Name  string
	Value string
}

// Record is one fully validated data row. Name and Description are nil when
// the schema has no such column.
type Record struct {
	// Line is the 1-based line number the record was read from. It is set by
	// the Parser; BuildRecord leaves it zero.
	Line int

	Name        *string
	Description *string
	Latitude    float64
	Longitude   float64

	// Attributes follow the schema's extra columns in ascending index order.
	Attributes []Attribute
}

// BuildRecord validates fields against s and assembles a Record. On any
// non-OK status the returned Record is the zero value.
func BuildRecord(fields []string, s *Schema) (Record, Status) {
	if s == nil || len(fields) != s.ColumnCount() {
		return Record{}, StatusInvalidData
	}

	latIx, okLat := s.Index(RoleLatitude)
	lonIx, okLon := s.Index(RoleLongitude)
	if !okLat || !okLon {
		return Record{}, StatusNoLatLon
	}
	lat, ok := parseCoord(fields[latIx], 90)
	if !ok {
		return Record{}, StatusBadLatLon
	}
	lon, ok := parseCoord(fields[lonIx], 180)
	if !ok {
		return Record{}, StatusBadLatLon
	}

	rec := Record{Latitude: lat, Longitude: lon}
	if i, ok := s.Index(RoleName); ok {
		v := fields[i]
		rec.Name = &v
	}
	if i, ok := s.Index(RoleDescription); ok {
		v := fields[i]
		rec.Description = &v
	}
	if len(s.extras) > 0 {
		rec.Attributes = make([]Attribute, 0, len(s.extras))
		for _, c := range s.extras {
			rec.Attributes = append(rec.Attributes, Attribute{Name: c.Header, Value: fields[c.Index]})
		}
	}
	return rec, StatusOK
}

// parseCoord parses a coordinate and checks it against [-limit, limit].
func parseCoord(text string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < -limit || v > limit {
		return 0, false
	}
	return v, true
}
