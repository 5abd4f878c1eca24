package csv

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"csvkml/internal/config"
)

// Options configures a Splitter. The zero value reads comma-separated UTF-8
// with strict quoting and keeps field text untouched.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// Comment, when non-zero, marks lines starting with it as comments to skip.
	Comment rune

	// LazyQuotes relaxes quote handling (see encoding/csv).
	LazyQuotes bool

	// TrimSpace trims leading/trailing white space from every field.
	TrimSpace bool
}

// OptionsFrom reads Splitter options from a parser options bag:
// comma, comment, lazy_quotes, trim_space.
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		Comment:    o.Rune("comment", 0),
		LazyQuotes: o.Bool("lazy_quotes", false),
		TrimSpace:  o.Bool("trim_space", false),
	}
}

// Splitter is a LineSource backed by encoding/csv. Lines that encoding/csv
// rejects (e.g. a stray quote) are yielded with nil fields so the parser can
// report them and move on; any other read error stops iteration.
type Splitter struct {
	cr     *csv.Reader
	trim   bool
	fields []string
	line   int
	err    error
}

// NewSplitter reads delimited text from r. A UTF-8 or UTF-16 byte order mark
// selects the input encoding.
func NewSplitter(r io.Reader, opt Options) *Splitter {
	cr := csv.NewReader(decodeBOM(r))
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.Comment = opt.Comment
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1 // width is checked against the schema
	return &Splitter{cr: cr, trim: opt.TrimSpace}
}

// SplitString is NewSplitter over in-memory text with default options.
func SplitString(s string) *Splitter {
	return NewSplitter(strings.NewReader(s), Options{})
}

// Next implements LineSource.
func (s *Splitter) Next() bool {
	if s.err != nil {
		return false
	}
	rec, err := s.cr.Read()
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return false
	default:
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			s.fields = nil
			s.line = pe.StartLine
			return true
		}
		s.err = err
		return false
	}
	if s.trim {
		for i, v := range rec {
			rec[i] = strings.TrimSpace(v)
		}
	}
	s.fields = rec
	s.line, _ = s.cr.FieldPos(0)
	return true
}

// Line returns the 1-based physical line the current record starts on.
// Blank lines and newlines inside quoted fields are counted.
func (s *Splitter) Line() int { return s.line }

// Fields implements LineSource.
func (s *Splitter) Fields() []string { return s.fields }

// Err implements LineSource.
func (s *Splitter) Err() error { return s.err }

