package csv

import (
	"strings"

	"golang.org/x/text/cases"
)

// Role is the semantic meaning assigned to a column.
type Role int

const (
	RoleExtra Role = iota
	RoleName
	RoleLatitude
	RoleLongitude
	RoleDescription
)

// wellKnown is the closed role vocabulary, keyed by case-folded header text.
var wellKnown = map[string]Role{
	"name":        RoleName,
	"latitude":    RoleLatitude,
	"longitude":   RoleLongitude,
	"description": RoleDescription,
}

func (r Role) String() string {
	switch r {
	case RoleName:
		return "name"
	case RoleLatitude:
		return "latitude"
	case RoleLongitude:
		return "longitude"
	case RoleDescription:
		return "description"
	default:
		return "extra"
	}
}

// Column is one extra (non well-known) column: its 0-based index and the
// header text exactly as it appeared in the source.
type Column struct {
	Index  int
	Header string
}

// Schema is the immutable result of classifying a header row. It is safe to
// share between goroutines once resolved.
type Schema struct {
	columns int
	roles   map[Role]int
	extras  []Column // ascending by Index, by construction
	byIndex []Role
}

// ResolveSchema classifies each header as a well-known role or an extra
// column. Matching is case-insensitive; the first column claiming a role wins
// and later duplicates are kept as extras. An empty header list yields
// StatusBlankLine and a nil schema.
func ResolveSchema(headers []string) (*Schema, Status) {
	if len(headers) == 0 {
		return nil, StatusBlankLine
	}

	fold := cases.Fold()
	s := &Schema{
		columns: len(headers),
		roles:   make(map[Role]int, len(wellKnown)),
		byIndex: make([]Role, len(headers)),
	}
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		key := fold.String(strings.TrimSpace(h))
		if role, ok := wellKnown[key]; ok {
			if _, taken := s.roles[role]; !taken {
				s.roles[role] = i
				s.byIndex[i] = role
				continue
			}
		}
		s.byIndex[i] = RoleExtra
		s.extras = append(s.extras, Column{Index: i, Header: h})
	}
	return s, StatusOK
}

// ColumnCount is the number of columns every data row must have.
func (s *Schema) ColumnCount() int { return s.columns }

// Index returns the column index claimed by role, if any. RoleExtra is never
// present.
func (s *Schema) Index(role Role) (int, bool) {
	i, ok := s.roles[role]
	return i, ok
}

// Role returns the role of column i, or RoleExtra when i is out of range.
func (s *Schema) Role(i int) Role {
	if i < 0 || i >= len(s.byIndex) {
		return RoleExtra
	}
	return s.byIndex[i]
}

// Extras returns a copy of the extra columns in ascending index order.
func (s *Schema) Extras() []Column {
	out := make([]Column, len(s.extras))
	copy(out, s.extras)
	return out
}

// Extra returns the header text of extra column i.
func (s *Schema) Extra(i int) (string, bool) {
	if s.Role(i) != RoleExtra || i < 0 || i >= s.columns {
		return "", false
	}
	for _, c := range s.extras {
		if c.Index == i {
			return c.Header, true
		}
	}
	return "", false
}

// HasPosition reports whether both latitude and longitude columns exist.
func (s *Schema) HasPosition() bool {
	_, lat := s.roles[RoleLatitude]
	_, lon := s.roles[RoleLongitude]
	return lat && lon
}
