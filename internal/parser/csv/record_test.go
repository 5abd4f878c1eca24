package csv

import (
	"reflect"
	"testing"
)

func mustSchema(t *testing.T, headers ...string) *Schema {
	t.Helper()
	s, st := ResolveSchema(headers)
	if st != StatusOK {
		t.Fatalf("ResolveSchema(%v) = %s", headers, st)
	}
	return s
}

func TestBuildRecord_NameAndPosition(t *testing.T) {
	t.Parallel()

	s := mustSchema(t, "name", "latitude", "longitude")
	rec, st := BuildRecord([]string{"hello", "38.1", "-121.2"}, s)
	if st != StatusOK {
		t.Fatalf("status = %s", st)
	}
	if rec.Name == nil || *rec.Name != "hello" {
		t.Fatalf("name = %v, want hello", rec.Name)
	}
	if rec.Description != nil {
		t.Fatalf("description = %q, want nil", *rec.Description)
	}
	if rec.Latitude != 38.1 || rec.Longitude != -121.2 {
		t.Fatalf("position = %v,%v; want 38.1,-121.2", rec.Latitude, rec.Longitude)
	}
	if len(rec.Attributes) != 0 {
		t.Fatalf("attributes = %v, want none", rec.Attributes)
	}
}

func TestBuildRecord_Attributes(t *testing.T) {
	t.Parallel()

	s := mustSchema(t, "name", "longitude", "latitude", "wid", "ht")
	rec, st := BuildRecord([]string{"Hi there", "-123.125", "38.123", "42", "1001"}, s)
	if st != StatusOK {
		t.Fatalf("status = %s", st)
	}
	want := []Attribute{{Name: "wid", Value: "42"}, {Name: "ht", Value: "1001"}}
	if !reflect.DeepEqual(rec.Attributes, want) {
		t.Fatalf("attributes = %v, want %v", rec.Attributes, want)
	}
	if rec.Latitude != 38.123 || rec.Longitude != -123.125 {
		t.Fatalf("position = %v,%v", rec.Latitude, rec.Longitude)
	}
}

func TestBuildRecord_Description(t *testing.T) {
	t.Parallel()

	s := mustSchema(t, "name", "latitude", "longitude", "description")
	rec, st := BuildRecord([]string{"Hi there", "38.123", "-123.125", "How are you?"}, s)
	if st != StatusOK {
		t.Fatalf("status = %s", st)
	}
	if rec.Description == nil || *rec.Description != "How are you?" {
		t.Fatalf("description = %v", rec.Description)
	}
}

func TestBuildRecord_Failures(t *testing.T) {
	t.Parallel()

	full := mustSchema(t, "latitude", "longitude")
	noLat := mustSchema(t, "name", "longitude")

	tests := []struct {
		name   string
		fields []string
		schema *Schema
		want   Status
	}{
		{"too many fields", []string{"this", "is", "bad"}, full, StatusInvalidData},
		{"too few fields", []string{"1.0"}, full, StatusInvalidData},
		{"unsplittable line", nil, full, StatusInvalidData},
		{"nil schema", []string{"1", "2"}, nil, StatusInvalidData},
		{"no latitude column", []string{"x", "2.0"}, noLat, StatusNoLatLon},
		{"non-numeric latitude", []string{"north", "2.0"}, full, StatusBadLatLon},
		{"empty longitude", []string{"1.0", ""}, full, StatusBadLatLon},
		{"latitude out of range", []string{"90.5", "0"}, full, StatusBadLatLon},
		{"longitude out of range", []string{"0", "-180.01"}, full, StatusBadLatLon},
		{"NaN", []string{"NaN", "0"}, full, StatusBadLatLon},
		{"Inf", []string{"0", "+Inf"}, full, StatusBadLatLon},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec, st := BuildRecord(tc.fields, tc.schema)
			if st != tc.want {
				t.Fatalf("status = %s, want %s", st, tc.want)
			}
			if !reflect.DeepEqual(rec, Record{}) {
				t.Fatalf("record = %+v, want zero value on failure", rec)
			}
		})
	}
}

func TestBuildRecord_BoundsInclusive(t *testing.T) {
	t.Parallel()

	s := mustSchema(t, "latitude", "longitude")
	rec, st := BuildRecord([]string{"-90", "180"}, s)
	if st != StatusOK || rec.Latitude != -90 || rec.Longitude != 180 {
		t.Fatalf("got %+v %s; want -90,180 ok", rec, st)
	}
	// Surrounding space is tolerated in numeric fields.
	if _, st := BuildRecord([]string{" 1.5 ", "2.5"}, s); st != StatusOK {
		t.Fatalf("padded latitude status = %s, want ok", st)
	}
}

func TestBuildRecord_Idempotent(t *testing.T) {
	t.Parallel()

	s := mustSchema(t, "name", "latitude", "longitude", "par")
	f := []string{"7", "1.5", "2.5", "4"}
	a, _ := BuildRecord(f, s)
	b, _ := BuildRecord(f, s)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("records differ: %+v vs %+v", a, b)
	}
}

func TestStatus_StringAndErr(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, st := range Statuses {
		label := st.String()
		if label == "unknown" || seen[label] {
			t.Fatalf("status %d has bad or duplicate label %q", st, label)
		}
		seen[label] = true
		if (st == StatusOK) != (st.Err() == nil) {
			t.Fatalf("status %s: Err() = %v", st, st.Err())
		}
	}
	if StatusInvalidData.Err() != ErrInvalidData {
		t.Fatalf("InvalidData.Err() = %v", StatusInvalidData.Err())
	}
}
