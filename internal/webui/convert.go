package webui

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"csvkml/internal/geojson"
	"csvkml/internal/kml"
	"csvkml/internal/parser/csv"
	"csvkml/internal/probe"
)

// FailuresHeader carries the number of data lines that produced no feature.
const FailuresHeader = "X-Csvkml-Failures"

// handleConvert parses the request body as CSV and answers with the
// resulting document. Row failures do not fail the request; their count is
// reported in FailuresHeader.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "kml"
	}
	if format != "kml" && format != "geojson" {
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}
	name := q.Get("name")
	if name == "" {
		name = "csvkml"
	}

	body := http.MaxBytesReader(w, r.Body, maxUpload)
	src := csv.NewSplitter(body, csv.Options{Comma: probe.DecodeDelimiter(q.Get("delimiter"))})

	var (
		errs  kml.ErrorLog
		h     csv.Handler
		write func(*bytes.Buffer) error
	)
	switch format {
	case "kml":
		doc := kml.NewDocument(name)
		h = &kml.FolderSaver{Folder: doc.Folder, Log: &errs}
		write = func(b *bytes.Buffer) error { return kml.Encode(b, doc) }
	case "geojson":
		c := &geojson.Collection{Name: name}
		h = csv.HandlerFunc(func(line int, st csv.Status, rec *csv.Record) bool {
			if st == csv.StatusOK {
				c.Add(rec)
			} else {
				errs.Add(line, st)
			}
			return true
		})
		write = func(b *bytes.Buffer) error { return c.Encode(b) }
	}

	if err := csv.ParseCsv(src, h); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, csv.ErrBlankLine):
			http.Error(w, "blank schema: the first line must be a header row", http.StatusBadRequest)
		case errors.As(err, &tooBig):
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		default:
			http.Error(w, "read csv: "+err.Error(), http.StatusBadRequest)
		}
		return
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		log.Printf("webui: encode %s: %v", format, err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	if format == "kml" {
		w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	} else {
		w.Header().Set("Content-Type", "application/geo+json")
	}
	w.Header().Set(FailuresHeader, strconv.Itoa(errs.Len()))
	_, _ = w.Write(buf.Bytes())
}
