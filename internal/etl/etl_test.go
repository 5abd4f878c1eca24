package etl

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"csvkml/internal/config"
	"csvkml/internal/kml"
	"csvkml/internal/parser/csv"
	"csvkml/internal/storage"
	_ "csvkml/internal/storage/sqlite"
)

const sample = `Name,Latitude,Longitude,Par
Hole 1,37.783238,-122.498492,5
Hole 2,37.783657,-122.499420,4
Hole 3,north,-122.497593,4
Hole 4,37.786306
Hole 5,37.786306,-122.494170,3
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func filePipeline(in string) config.Pipeline {
	return config.Pipeline{
		Job:    "test",
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: in}},
		Parser: config.Parser{Kind: "csv", Options: config.Options{}},
	}
}

func TestRun_FileToKML(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "golf.csv", sample)
	out := filepath.Join(t.TempDir(), "golf.kml")
	spec := filePipeline(in)
	spec.Output = config.Output{Kind: "kml", Path: out}

	sum, err := Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RunID == "" {
		t.Fatalf("RunID not set")
	}
	if sum.Lines != 5 || sum.OK != 3 || sum.Written != 3 || sum.Dropped != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.ByStatus[csv.StatusBadLatLon] != 1 || sum.ByStatus[csv.StatusInvalidData] != 1 {
		t.Fatalf("ByStatus = %v", sum.ByStatus)
	}
	if len(sum.Failures) != 2 || sum.Failures[0] != "line=4: bad_lat_lon" || sum.Failures[1] != "line=5: invalid_data" {
		t.Fatalf("Failures = %q", sum.Failures)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	doc, err := kml.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Name != "golf" {
		t.Fatalf("document name = %q, want golf", doc.Name)
	}
	pms := doc.Folder.Features()
	if len(pms) != 3 || *pms[2].Name != "Hole 5" {
		t.Fatalf("placemarks = %d", len(pms))
	}
	if lat, lon, ok := pms[0].LatLon(); !ok || lat != 37.783238 || lon != -122.498492 {
		t.Fatalf("LatLon = %v %v %v", lat, lon, ok)
	}
}

// Not parallel: swaps the stdout seam.
func TestRun_GeoJSONToStdoutWithSchemaAndDedup(t *testing.T) {
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })

	in := writeFile(t, "data.csv", "a;1;2\nb;1;2\nc;3;4\n")
	spec := filePipeline(in)
	spec.Parser.Options = config.Options{
		"comma":  ";",
		"schema": []any{"name", "latitude", "longitude"},
	}
	spec.Transform = []config.Transform{{Kind: "dedup", Options: config.Options{}}}
	spec.Output = config.Output{Kind: "geojson", Path: "-", Name: "points"}

	sum, err := Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Lines != 3 || sum.OK != 3 || sum.Dropped != 1 || sum.Written != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Failures) != 1 || sum.Failures[0] != "line=2: dropped: duplicate" {
		t.Fatalf("Failures = %q", sum.Failures)
	}

	var got struct {
		Name     string `json:"name"`
		Features []struct {
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if got.Name != "points" || len(got.Features) != 2 || got.Features[1].Properties["name"] != "c" {
		t.Fatalf("collection = %+v", got)
	}
}

func TestRun_SchemaPath(t *testing.T) {
	t.Parallel()

	hdr := writeFile(t, "header.csv", "Longitude,Latitude,Name\n")
	in := writeFile(t, "rows.csv", "10,20,x\n11,21,y\n")
	spec := filePipeline(in)
	spec.Parser.Options = config.Options{"schema_path": hdr}
	spec.Output = config.Output{Kind: "kml", Path: filepath.Join(t.TempDir(), "o.kml")}

	sum, err := Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Lines != 2 || sum.OK != 2 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRun_BlankSchema(t *testing.T) {
	t.Parallel()

	spec := filePipeline(writeFile(t, "empty.csv", ""))
	spec.Output = config.Output{Kind: "kml", Path: filepath.Join(t.TempDir(), "o.kml")}

	_, err := Run(context.Background(), spec)
	if !IsSchemaError(err) {
		t.Fatalf("err = %v, want blank schema", err)
	}
	if _, statErr := os.Stat(spec.Output.Path); !os.IsNotExist(statErr) {
		t.Fatalf("output written despite failed run")
	}
}

func TestRun_MissingSource(t *testing.T) {
	t.Parallel()

	spec := filePipeline(filepath.Join(t.TempDir(), "nope.csv"))
	spec.Output = config.Output{Kind: "none"}
	if _, err := Run(context.Background(), spec); err == nil || !strings.Contains(err.Error(), "source open") {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_SQLite(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "golf.db")
	spec := filePipeline(writeFile(t, "golf.csv", sample))
	spec.Storage = config.Storage{Kind: "sqlite", DB: config.DBConfig{DSN: dsn, Table: "placemarks", AutoCreateTable: true}}
	spec.Runtime = config.RuntimeConfig{BatchSize: 2}

	sum, err := Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Inserted != 3 || sum.Batches != 2 || sum.Written != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var line int64
	var ext string
	err = db.QueryRow(`SELECT line_number, extended_data FROM placemarks WHERE name = 'Hole 5'`).Scan(&line, &ext)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if line != 6 || ext != `[{"name":"Par","value":"3"}]` {
		t.Fatalf("row = %d %s", line, ext)
	}
}

type failingRepo struct{ err error }

func (r *failingRepo) CopyFrom(context.Context, []string, [][]any) (int64, error) { return 0, r.err }
func (r *failingRepo) Exec(context.Context, string) error                        { return nil }
func (r *failingRepo) Close()                                                    {}

// Not parallel: swaps newRepositoryFn.
func TestRun_LoaderErrorFailsRun(t *testing.T) {
	orig := newRepositoryFn
	t.Cleanup(func() { newRepositoryFn = orig })

	boom := errors.New("disk full")
	newRepositoryFn = func(context.Context, storage.Config) (storage.Repository, error) {
		return &failingRepo{err: boom}, nil
	}

	spec := filePipeline(writeFile(t, "golf.csv", sample))
	spec.Storage = config.Storage{Kind: "fake", DB: config.DBConfig{DSN: "x", Table: "t"}}
	spec.Runtime = config.RuntimeConfig{BatchSize: 1}

	sum, err := Run(context.Background(), spec)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if sum.Inserted != 0 {
		t.Fatalf("Inserted = %d", sum.Inserted)
	}
}

func TestRun_UnknownTransform(t *testing.T) {
	t.Parallel()

	spec := filePipeline("unused.csv")
	spec.Transform = []config.Transform{{Kind: "explode"}}
	if _, err := Run(context.Background(), spec); err == nil {
		t.Fatalf("unknown transform must fail")
	}
}
