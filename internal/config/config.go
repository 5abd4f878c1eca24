// Package config defines the JSON-serializable pipeline description used by
// csvkml: where CSV comes from, how it is split, which record transforms run,
// and where placemarks go (a KML/GeoJSON document, a database table, or both).
//
// Example:
//
//	{
//	  "job":      "lincoln-park",
//	  "source":   { "kind": "file", "file": { "path": "testdata/golf.csv" } },
//	  "parser":   { "kind": "csv", "options": { "comma": ",", "trim_space": true } },
//	  "transform":[ { "kind": "dedup", "options": { "keys": ["latitude", "longitude"] } } ],
//	  "output":   { "kind": "kml", "path": "golf.kml", "name": "Lincoln Park" },
//	  "storage":  { "kind": "sqlite", "db": { "dsn": "golf.db", "table": "placemarks", "auto_create_table": true } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`

	Source    Source      `json:"source"`
	Parser    Parser      `json:"parser"`
	Transform []Transform `json:"transform"`

	// Output selects the document written from accepted placemarks.
	Output Output `json:"output"`

	// Storage optionally loads placemarks into a database table.
	Storage Storage       `json:"storage"`
	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls batching and channel buffer sizes.
type RuntimeConfig struct {
	BatchSize     int `json:"batch_size"`
	ChannelBuffer int `json:"channel_buffer"`
}

// Source identifies where CSV bytes come from: "file" or "http".
type Source struct {
	Kind string     `json:"kind"`
	File SourceFile `json:"file"`
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL                string `json:"url"`
	TimeoutSeconds     int    `json:"timeout_seconds"`
	MaxRetries         int    `json:"max_retries"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
}

// Parser configures line splitting and schema handling.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind"`

	// Options recognized for "csv":
	//   comma (string), comment (string), trim_space (bool), lazy_quotes (bool),
	//   schema ([]string)  - header supplied up front; the source is all data
	//   schema_path (string) - file whose first line is the header
	Options Options `json:"options"`
}

// Transform is one record transform step ("normalize", "dedup").
type Transform struct {
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// UnmarshalJSON decodes t and guarantees a non-nil Options map even when the
// "options" key is omitted.
func (t *Transform) UnmarshalJSON(b []byte) error {
	type plain Transform
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Options == nil {
		v.Options = Options{}
	}
	*t = Transform(v)
	return nil
}

// Output selects the document format written from accepted placemarks.
type Output struct {
	// Kind is "kml", "geojson" or "none".
	Kind string `json:"kind"`

	// Path is the destination file; "-" writes to stdout.
	Path string `json:"path"`

	// Name is used as the document/folder name.
	Name string `json:"name"`
}

// Storage selects an optional database sink. An empty Kind disables it.
type Storage struct {
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	DSN string `json:"dsn"`

	// Table is the destination table; schema-qualified names are accepted
	// where the backend supports them.
	Table string `json:"table"`

	// AutoCreateTable creates the placemark table when it does not exist.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Load reads and decodes a pipeline file. Files ending in .yaml or .yml are
// accepted as well as JSON.
func Load(path string) (Pipeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if raw, err = yamlToJSON(raw); err != nil {
			return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	var p Pipeline
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}

// yamlToJSON re-encodes a YAML document as JSON so both formats share the
// json struct tags and Options decoding.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Options fetches typed values from a free-form JSON object, returning the
// provided default when a key is absent or has an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers as
// float64, so both float64 and int are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of the string value for key, or def when the
// key is missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringSlice returns the string elements of an array value, or nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// UnmarshalJSON makes a missing or null options object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
