package csv

import "errors"

// Status classifies the outcome of resolving a schema or building a record
// from one line of input.
type Status int

const (
	// StatusOK means the line produced a complete Record.
	StatusOK Status = iota

	// StatusBlankLine means no schema could be formed (empty header).
	// It is fatal to the whole parse.
	StatusBlankLine

	// StatusInvalidData means the line's field count differs from the
	// schema's column count, or the line could not be split at all.
	StatusInvalidData

	// StatusNoLatLon means the schema lacks a latitude or longitude column,
	// so no row can carry a position.
	StatusNoLatLon

	// StatusBadLatLon means the latitude or longitude text is not a finite
	// number or lies outside [-90,90] / [-180,180].
	StatusBadLatLon
)

// Sentinel errors mirroring the non-OK statuses. Use errors.Is.
var (
	ErrBlankLine   = errors.New("csv: blank schema line")
	ErrInvalidData = errors.New("csv: field count does not match schema")
	ErrNoLatLon    = errors.New("csv: schema has no latitude/longitude column")
	ErrBadLatLon   = errors.New("csv: invalid latitude/longitude value")
)

// Statuses lists every status in declaration order.
var Statuses = []Status{StatusOK, StatusBlankLine, StatusInvalidData, StatusNoLatLon, StatusBadLatLon}

// String returns the snake_case label used in logs and metric labels.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBlankLine:
		return "blank_line"
	case StatusInvalidData:
		return "invalid_data"
	case StatusNoLatLon:
		return "no_lat_lon"
	case StatusBadLatLon:
		return "bad_lat_lon"
	default:
		return "unknown"
	}
}

// Err returns the sentinel error for s, or nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusBlankLine:
		return ErrBlankLine
	case StatusInvalidData:
		return ErrInvalidData
	case StatusNoLatLon:
		return ErrNoLatLon
	case StatusBadLatLon:
		return ErrBadLatLon
	default:
		return errors.New("csv: unknown status")
	}
}
