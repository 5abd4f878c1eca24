package etl

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"csvkml/internal/config"
	"csvkml/internal/datasource/httpds"
	"csvkml/internal/geojson"
	"csvkml/internal/kml"
	"csvkml/internal/parser/csv"
)

// documentSink accumulates records and encodes them once the parse is done.
type documentSink interface {
	add(rec *csv.Record)
	encode(w io.Writer) error
}

type kmlSink struct{ doc *kml.Document }

func (s *kmlSink) add(rec *csv.Record)      { s.doc.Folder.AddFeature(kml.FromRecord(rec)) }
func (s *kmlSink) encode(w io.Writer) error { return kml.Encode(w, s.doc) }

type geojsonSink struct{ c *geojson.Collection }

func (s *geojsonSink) add(rec *csv.Record)      { s.c.Add(rec) }
func (s *geojsonSink) encode(w io.Writer) error { return s.c.Encode(w) }

// newDocumentSink returns nil when the pipeline writes no document.
func newDocumentSink(spec config.Pipeline) (documentSink, error) {
	name := documentName(spec)
	switch spec.Output.Kind {
	case "", "none":
		return nil, nil
	case "kml":
		return &kmlSink{doc: kml.NewDocument(name)}, nil
	case "geojson":
		return &geojsonSink{c: &geojson.Collection{Name: name}}, nil
	default:
		return nil, fmt.Errorf("unsupported output.kind=%s", spec.Output.Kind)
	}
}

// documentName picks output.name, else the source file's base name without
// extension, else a name derived from the source URL.
func documentName(spec config.Pipeline) string {
	if spec.Output.Name != "" {
		return spec.Output.Name
	}
	switch spec.Source.Kind {
	case "file":
		if p := spec.Source.File.Path; p != "" && p != "-" {
			base := filepath.Base(p)
			return strings.TrimSuffix(base, filepath.Ext(base))
		}
	case "http":
		return httpds.DocumentName(spec.Source.HTTP.URL)
	}
	return "csvkml"
}
