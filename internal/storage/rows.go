package storage

import (
	"encoding/json"

	"csvkml/internal/parser/csv"
)

// Columns is the column order every row produced by RowFromRecord follows.
var Columns = []string{
	"line_number",
	"name",
	"description",
	"latitude",
	"longitude",
	"extended_data",
}

type extendedPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RowFromRecord flattens a built record into a row aligned to Columns.
// Absent name and description become NULL; attributes are stored as a
// JSON array of {"name","value"} objects in header order, or NULL when there
// are none.
func RowFromRecord(rec *csv.Record) []any {
	row := make([]any, len(Columns))
	row[0] = int64(rec.Line)
	row[1] = optString(rec.Name)
	row[2] = optString(rec.Description)
	row[3] = rec.Latitude
	row[4] = rec.Longitude
	if len(rec.Attributes) > 0 {
		pairs := make([]extendedPair, len(rec.Attributes))
		for i, kv := range rec.Attributes {
			pairs[i] = extendedPair{Name: kv.Name, Value: kv.Value}
		}
		// A slice of plain strings cannot fail to marshal.
		b, _ := json.Marshal(pairs)
		row[5] = string(b)
	}
	return row
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
