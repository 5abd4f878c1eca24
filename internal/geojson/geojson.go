// Package geojson renders placemark records as a GeoJSON FeatureCollection
// (RFC 7946). Feature properties keep the column order of the source file.
package geojson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"csvkml/internal/parser/csv"
)

// Property is one key/value pair of a feature's properties object.
type Property struct {
	Key   string
	Value string
}

// Properties marshals as a JSON object whose keys appear in slice order.
// Keys are expected to be unique; FromRecord guarantees it.
type Properties []Property

// MarshalJSON implements json.Marshaler.
func (ps Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the first value stored under key.
func (ps Properties) Get(key string) (string, bool) {
	for _, p := range ps {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Geometry is a GeoJSON Point.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Feature is a GeoJSON Feature with a Point geometry.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// FromRecord converts a validated record. Properties hold name and
// description (when present) followed by the record's attributes. An
// attribute whose key is already taken, such as a second "name" column, is
// renamed with a numeric suffix: "name_2", "name_3".
func FromRecord(rec *csv.Record) *Feature {
	f := &Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: [2]float64{rec.Longitude, rec.Latitude},
		},
		Properties: make(Properties, 0, len(rec.Attributes)+2),
	}
	if rec.Name != nil {
		f.Properties = append(f.Properties, Property{"name", *rec.Name})
	}
	if rec.Description != nil {
		f.Properties = append(f.Properties, Property{"description", *rec.Description})
	}
	for _, a := range rec.Attributes {
		f.Properties = append(f.Properties, Property{f.Properties.uniqueKey(a.Name), a.Value})
	}
	return f
}

func (ps Properties) uniqueKey(key string) string {
	if _, taken := ps.Get(key); !taken {
		return key
	}
	for n := 2; ; n++ {
		k := fmt.Sprintf("%s_%d", key, n)
		if _, taken := ps.Get(k); !taken {
			return k
		}
	}
}

// Collection is a FeatureCollection. Name is emitted as a foreign member.
type Collection struct {
	Name     string
	Features []*Feature
}

// Add appends a feature built from rec.
func (c *Collection) Add(rec *csv.Record) {
	c.Features = append(c.Features, FromRecord(rec))
}

// Encode writes the collection as indented JSON.
func (c *Collection) Encode(w io.Writer) error {
	out := struct {
		Type     string     `json:"type"`
		Name     string     `json:"name,omitempty"`
		Features []*Feature `json:"features"`
	}{"FeatureCollection", c.Name, c.Features}
	if out.Features == nil {
		out.Features = []*Feature{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("geojson: encode: %w", err)
	}
	return nil
}
