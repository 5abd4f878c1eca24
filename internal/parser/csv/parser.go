// Package csv converts delimited text into placemark records.
//
// A header row is classified into a Schema (ResolveSchema), every data row
// is validated and decoded against it (BuildRecord), and the Parser drives
// both over a LineSource, reporting each line to a Handler:
//
//	h := csv.HandlerFunc(func(line int, st csv.Status, rec *csv.Record) bool {
//		if st != csv.StatusOK {
//			log.Printf("line %d: %s", line, st)
//		}
//		return true
//	})
//	err := csv.ParseCsv(csv.SplitString(data), h)
//
// Row failures never abort a parse; only a blank schema, a read error from
// the LineSource, or a Handler returning false ends it early.
package csv

import (
	"errors"
	"fmt"
)

// ErrParserDone is returned when Parse is called on a Parser that already
// ran to completion.
var ErrParserDone = errors.New("csv: parser already used")

// LineSource yields one line at a time, already split into fields.
type LineSource interface {
	// Next advances to the next line. It returns false at end of input or
	// on a read failure; Err distinguishes the two.
	Next() bool
	// Fields returns the current line's fields. A nil result marks a line
	// that could not be split.
	Fields() []string
	// Err returns the first non-recoverable read error, if any.
	Err() error
}

// lineNumberer is implemented by sources that know the physical line the
// current record starts on. A non-positive Line falls back to counting.
type lineNumberer interface {
	Line() int
}

// Handler receives the outcome of every data line. rec is non-nil only when
// status is StatusOK. Returning false stops the parse.
type Handler interface {
	HandleLine(line int, status Status, rec *Record) bool
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(line int, status Status, rec *Record) bool

// HandleLine calls f.
func (f HandlerFunc) HandleLine(line int, status Status, rec *Record) bool {
	return f(line, status, rec)
}

// NopHandler accepts every line and always continues. It is useful when only
// validation is wanted.
type NopHandler struct{}

// HandleLine implements Handler.
func (NopHandler) HandleLine(int, Status, *Record) bool { return true }

type parserState int

const (
	awaitingSchema parserState = iota
	streaming
	done
)

// Parser drives one parse of a LineSource. It is single-use and not safe for
// concurrent use; the Schema it resolves may be shared.
type Parser struct {
	src     LineSource
	handler Handler
	schema  *Schema
	state   parserState
	line    int
}

// NewParser returns a Parser that reads src and reports to h. A nil h is
// replaced by NopHandler.
func NewParser(src LineSource, h Handler) *Parser {
	if h == nil {
		h = NopHandler{}
	}
	return &Parser{src: src, handler: h}
}

// SetSchema resolves headers and installs the result. When it succeeds the
// Parser skips reading a header line, and data lines are numbered from 1.
// On a Parser that has already run it only reports the status.
func (p *Parser) SetSchema(headers []string) Status {
	s, st := ResolveSchema(headers)
	if st != StatusOK {
		return st
	}
	p.useSchema(s)
	return StatusOK
}

// Schema returns the schema in use, or nil before one is resolved.
func (p *Parser) Schema() *Schema { return p.schema }

func (p *Parser) useSchema(s *Schema) {
	if p.state == done {
		return
	}
	p.schema = s
	p.state = streaming
}

// Parse runs the parse to completion. It returns ErrBlankLine when no schema
// can be formed, a wrapped read error when the LineSource fails, and nil
// otherwise, including when the Handler asked to stop.
func (p *Parser) Parse() error {
	if p.state == done {
		return ErrParserDone
	}
	defer func() { p.state = done }()

	if p.state == awaitingSchema {
		var headers []string
		if p.src.Next() {
			headers = p.src.Fields()
		} else if err := p.src.Err(); err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		s, st := ResolveSchema(headers)
		if st != StatusOK {
			return st.Err()
		}
		p.line = p.sourceLine(1)
		p.useSchema(s)
	}

	for p.src.Next() {
		p.line = p.sourceLine(p.line + 1)
		rec, st := BuildRecord(p.src.Fields(), p.schema)
		var out *Record
		if st == StatusOK {
			rec.Line = p.line
			out = &rec
		}
		if !p.handler.HandleLine(p.line, st, out) {
			return nil
		}
	}
	if err := p.src.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", p.line+1, err)
	}
	return nil
}

// sourceLine returns the physical line of the current record when the source
// tracks it, and next otherwise.
func (p *Parser) sourceLine(next int) int {
	if ln, ok := p.src.(lineNumberer); ok {
		if n := ln.Line(); n > 0 {
			return n
		}
	}
	return next
}

// ParseCsv reads the schema from the first line of src and streams the rest
// to h.
func ParseCsv(src LineSource, h Handler) error {
	return NewParser(src, h).Parse()
}

// ParseCsvWithSchema streams every line of src to h using a schema resolved
// elsewhere. The first line of src is data and is numbered 1.
func ParseCsvWithSchema(src LineSource, s *Schema, h Handler) error {
	if s == nil {
		return ErrBlankLine
	}
	p := NewParser(src, h)
	p.useSchema(s)
	return p.Parse()
}
