// Package kml holds the small subset of the KML 2.2 document model that
// csvkml produces (Document, Folder, Placemark, Point, ExtendedData) and an
// encoder for it.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"csvkml/internal/parser/csv"
)

// Namespace is the KML 2.2 XML namespace.
const Namespace = "http://www.opengis.net/kml/2.2"

// Document is the top-level KML container. It holds a single Folder.
type Document struct {
	Name   string  `xml:"name,omitempty"`
	Folder *Folder `xml:"Folder"`
}

// NewDocument returns a Document whose folder shares its name.
func NewDocument(name string) *Document {
	return &Document{Name: name, Folder: &Folder{Name: name}}
}

// Folder is an ordered list of placemarks.
type Folder struct {
	Name       string       `xml:"name,omitempty"`
	Placemarks []*Placemark `xml:"Placemark"`
}

// AddFeature appends p to the folder.
func (f *Folder) AddFeature(p *Placemark) {
	f.Placemarks = append(f.Placemarks, p)
}

// Features returns the folder's placemarks in insertion order.
func (f *Folder) Features() []*Placemark { return f.Placemarks }

// Placemark is a named point with optional free-form data.
type Placemark struct {
	Name         *string       `xml:"name,omitempty"`
	Description  *string       `xml:"description,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
}

// LatLon returns the placemark's position, if it has a Point.
func (p *Placemark) LatLon() (lat, lon float64, ok bool) {
	if p == nil || p.Point == nil {
		return 0, 0, false
	}
	return p.Point.Lat, p.Point.Lon, true
}

// ExtendedData carries the untyped name/value pairs of a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data is one <Data name="..."><value>...</value></Data> entry.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// Point is a 2D position. It encodes as <coordinates>lon,lat,0</coordinates>.
type Point struct {
	Lat float64
	Lon float64
}

// Coordinates renders the KML coordinate tuple.
func (pt Point) Coordinates() string {
	return strconv.FormatFloat(pt.Lon, 'f', -1, 64) + "," +
		strconv.FormatFloat(pt.Lat, 'f', -1, 64) + ",0"
}

// MarshalXML implements xml.Marshaler.
func (pt Point) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	v := struct {
		Coordinates string `xml:"coordinates"`
	}{pt.Coordinates()}
	return e.EncodeElement(v, start)
}

// UnmarshalXML implements xml.Unmarshaler for round-tripping documents in tests
// and tools.
func (pt *Point) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v struct {
		Coordinates string `xml:"coordinates"`
	}
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	parts := strings.Split(strings.TrimSpace(v.Coordinates), ",")
	if len(parts) < 2 {
		return fmt.Errorf("kml: bad coordinates %q", v.Coordinates)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return fmt.Errorf("kml: longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return fmt.Errorf("kml: latitude: %w", err)
	}
	pt.Lat, pt.Lon = lat, lon
	return nil
}

// FromRecord builds a Placemark from a validated record. The ExtendedData
// block is omitted when the record carries no attributes.
func FromRecord(rec *csv.Record) *Placemark {
	p := &Placemark{
		Name:        rec.Name,
		Description: rec.Description,
		Point:       &Point{Lat: rec.Latitude, Lon: rec.Longitude},
	}
	if len(rec.Attributes) > 0 {
		ed := &ExtendedData{Data: make([]Data, len(rec.Attributes))}
		for i, a := range rec.Attributes {
			ed.Data[i] = Data{Name: a.Name, Value: a.Value}
		}
		p.ExtendedData = ed
	}
	return p
}

type root struct {
	XMLName  xml.Name  `xml:"http://www.opengis.net/kml/2.2 kml"`
	Document *Document `xml:"Document"`
}

// Encode writes d as an indented KML file, XML declaration included.
func Encode(w io.Writer, d *Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root{Document: d}); err != nil {
		return fmt.Errorf("kml: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Decode reads a document written by Encode.
func Decode(r io.Reader) (*Document, error) {
	var v root
	if err := xml.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("kml: decode: %w", err)
	}
	return v.Document, nil
}
