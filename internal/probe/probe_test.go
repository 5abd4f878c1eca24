package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"csvkml/internal/parser/csv"
)

const sample = "Name,Latitude,Longitude,Par\n" +
	"a,1,2,4\n" +
	"b,x,2,4\n" +
	"c,1,2\n" +
	"d,3,4,5\n"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sample.csv")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestProbe_File(t *testing.T) {
	t.Parallel()

	res, err := Probe(context.Background(), Options{Path: writeFile(t, sample)})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	wantCols := []Column{
		{0, "Name", "name"},
		{1, "Latitude", "latitude"},
		{2, "Longitude", "longitude"},
		{3, "Par", "extra"},
	}
	if len(res.Columns) != len(wantCols) {
		t.Fatalf("columns = %+v", res.Columns)
	}
	for i, c := range wantCols {
		if res.Columns[i] != c {
			t.Fatalf("column %d = %+v, want %+v", i, res.Columns[i], c)
		}
	}
	if res.Lines != 4 || res.Counts["ok"] != 2 || res.Counts["bad_lat_lon"] != 1 || res.Counts["invalid_data"] != 1 {
		t.Fatalf("counts = %v lines=%d", res.Counts, res.Lines)
	}
	if len(res.Failures) != 2 || res.Failures[0] != (Failure{3, "bad_lat_lon"}) || res.Failures[1] != (Failure{4, "invalid_data"}) {
		t.Fatalf("failures = %+v", res.Failures)
	}
	if res.Truncated {
		t.Fatalf("small file must not be truncated")
	}
	body := string(res.Body)
	for _, want := range []string{"index,header,role\n", "3,Par,extra\n", "# lines=4 ok=2 invalid_data=1 bad_lat_lon=1\n", "# line 4: invalid_data\n"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestProbe_TruncatedLastLineIgnored(t *testing.T) {
	t.Parallel()

	// Cut in the middle of the "d" line: only a, b and c are complete.
	limit := strings.Index(sample, "d,3") + 3
	res, err := Probe(context.Background(), Options{Path: writeFile(t, sample), MaxBytes: limit})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !res.Truncated || res.Lines != 3 {
		t.Fatalf("truncated=%v lines=%d", res.Truncated, res.Lines)
	}
}

func TestProbe_HeaderLongerThanLimit(t *testing.T) {
	t.Parallel()

	_, err := Probe(context.Background(), Options{Path: writeFile(t, sample), MaxBytes: 5})
	if err == nil || !strings.Contains(err.Error(), "longer than 5 bytes") {
		t.Fatalf("err = %v", err)
	}
}

func TestProbe_MaxRowsAndJSON(t *testing.T) {
	t.Parallel()

	res, err := Probe(context.Background(), Options{Path: writeFile(t, sample), MaxRows: 1, OutputJSON: true})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Lines != 1 {
		t.Fatalf("lines = %d, want 1", res.Lines)
	}
	var got struct {
		Columns  []Column      `json:"columns"`
		Counts   map[string]int `json:"counts"`
		Failures []Failure      `json:"failures"`
	}
	if err := json.Unmarshal(res.Body, &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, res.Body)
	}
	if len(got.Columns) != 4 || got.Counts["ok"] != 1 || got.Failures == nil {
		t.Fatalf("json = %+v", got)
	}
}

func TestProbe_NoPositionColumns(t *testing.T) {
	t.Parallel()

	res, err := Probe(context.Background(), Options{Path: writeFile(t, "a;b\n1;2\n"), Delimiter: ';'})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Counts["no_lat_lon"] != 1 || !strings.Contains(string(res.Body), "no latitude/longitude") {
		t.Fatalf("res = %+v\n%s", res, res.Body)
	}
}

func TestProbe_BlankSample(t *testing.T) {
	t.Parallel()

	_, err := Probe(context.Background(), Options{Path: writeFile(t, "")})
	if !errors.Is(err, csv.ErrBlankLine) {
		t.Fatalf("err = %v, want ErrBlankLine", err)
	}
}

func TestProbe_HTTPRangeAndSave(t *testing.T) {
	t.Parallel()

	var sawRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRange = r.Header.Get("Range")
		_, _ = w.Write([]byte(sample)) // ignores Range
	}))
	defer srv.Close()

	save := filepath.Join(t.TempDir(), "saved.csv")
	res, err := Probe(context.Background(), Options{URL: srv.URL + "/golf.csv", MaxBytes: 32, SaveSample: save})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if sawRange != "bytes=0-31" {
		t.Fatalf("Range = %q", sawRange)
	}
	// 32 bytes reach into "a,1,2,4\n"; only the header survives the cut.
	if !res.Truncated || res.Lines != 0 || len(res.Columns) != 4 {
		t.Fatalf("res = %+v", res)
	}
	saved, err := os.ReadFile(save)
	if err != nil || string(saved) != "Name,Latitude,Longitude,Par\n" {
		t.Fatalf("saved = %q, %v", saved, err)
	}
}

func TestProbe_NoLocation(t *testing.T) {
	t.Parallel()

	if _, err := Probe(context.Background(), Options{}); err == nil {
		t.Fatalf("missing path and url must fail")
	}
}

func TestDecodeDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want rune
	}{
		{"", ','},
		{";", ';'},
		{"|x", '|'},
		{`\t`, '\t'},
		{"tab", '\t'},
		{"semicolon", ';'},
		{"pipe", '|'},
		{string([]byte{0xFF}), ','},
	}
	for _, tc := range tests {
		if got := DecodeDelimiter(tc.in); got != tc.want {
			t.Fatalf("DecodeDelimiter(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
