package builtin

import (
	"strings"

	"csvkml/internal/parser/csv"
)

// Require drops any record missing a non-blank value for one of Fields.
// "name" and "description" refer to the placemark text; any other field is
// looked up among the record's attributes.
type Require struct {
	Fields []string
}

// Apply implements transformer.Transformer.
func (r Require) Apply(rec *csv.Record) (bool, string) {
	for _, f := range r.Fields {
		var v *string
		switch f {
		case "name":
			v = rec.Name
		case "description":
			v = rec.Description
		default:
			for i := range rec.Attributes {
				if rec.Attributes[i].Name == f {
					v = &rec.Attributes[i].Value
					break
				}
			}
		}
		if v == nil || strings.TrimSpace(*v) == "" {
			return false, "missing " + f
		}
	}
	return true, ""
}
