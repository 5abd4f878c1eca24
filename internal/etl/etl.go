// Package etl runs a csvkml pipeline end to end:
//
//	source → Splitter → Parser → transformers → fan-out ─┬→ KML/GeoJSON document
//	                                                      └→ storage loader (batched)
//
// The parse runs on one goroutine and feeds accepted records through a
// bounded channel; the fan-out and the loader run alongside it under an
// errgroup, so a storage failure cancels the parse. Row-level failures never
// fail a run: they are counted by status and the first few are logged.
package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"csvkml/internal/config"
	"csvkml/internal/datasource"
	"csvkml/internal/metrics"
	"csvkml/internal/parser/csv"
	"csvkml/internal/storage"
	"csvkml/internal/transformer"
)

// firstFailures is how many failure messages a run keeps verbatim.
const firstFailures = 5

// Summary reports what a run did. Lines counts data lines (header excluded);
// OK + the non-OK entries of ByStatus == Lines. Of the OK records, Dropped
// were removed by transformers; the rest were Written to the output document
// and/or Inserted into storage.
type Summary struct {
	RunID    string
	Lines    int64
	OK       int64
	ByStatus map[csv.Status]int64
	Dropped  int64
	Written  int64
	Inserted int64
	Batches  int64

	// Failures holds the first few row failures and drops, "line=N: reason".
	Failures []string
}

// Test seams.
var (
	newRepositoryFn = storage.New
	openSourceFn    = openSource
	stdout          io.Writer = os.Stdout
)

func openSource(ctx context.Context, spec config.Pipeline) (io.ReadCloser, error) {
	src, err := datasource.New(spec.Source)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx)
}

// Run executes spec and returns its Summary. The returned error is non-nil
// only for run-level failures: bad configuration, an unreadable source, a
// blank schema, a storage error or an output write error.
func Run(ctx context.Context, spec config.Pipeline) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), ByStatus: make(map[csv.Status]int64)}
	job := jobName(spec)
	rt := newRuntimeConfig(spec)
	runStart := time.Now()

	log.Printf("run: id=%s job=%s source=%s output=%s storage=%s batch=%d buffer=%d",
		sum.RunID, job, spec.Source.Kind, spec.Output.Kind, spec.Storage.Kind, rt.batchSize, rt.bufferSize)

	chain, err := transformer.Build(spec.Transform)
	if err != nil {
		return sum, err
	}
	schema, err := presetSchema(ctx, spec.Parser.Options)
	if err != nil {
		return sum, err
	}
	doc, err := newDocumentSink(spec)
	if err != nil {
		return sum, err
	}

	var repo storage.Repository
	if spec.Storage.Kind != "" {
		if repo, err = initRepository(ctx, spec); err != nil {
			return sum, err
		}
		defer repo.Close()
	}

	rc, err := openSourceFn(ctx, spec)
	if err != nil {
		return sum, fmt.Errorf("source open: %w", err)
	}
	defer rc.Close()

	agg := newErrAgg(firstFailures)
	g, gctx := errgroup.WithContext(ctx)
	recCh := make(chan *csv.Record, rt.bufferSize)

	var rowCh chan []any
	if repo != nil {
		rowCh = make(chan []any, rt.bufferSize)
	}

	// Producer: parse and transform on this goroutine only; the handler owns
	// the line counters until g.Wait returns.
	g.Go(func() error {
		defer close(recCh)
		start := time.Now()

		h := csv.HandlerFunc(func(line int, st csv.Status, rec *csv.Record) bool {
			sum.Lines++
			if st != csv.StatusOK {
				sum.ByStatus[st]++
				agg.add(fmt.Sprintf("line=%d: %s", line, st))
				return true
			}
			sum.OK++
			if keep, reason := chain.Apply(rec); !keep {
				sum.Dropped++
				agg.add(fmt.Sprintf("line=%d: dropped: %s", line, reason))
				return true
			}
			select {
			case recCh <- rec:
				return true
			case <-gctx.Done():
				return false
			}
		})

		split := csv.NewSplitter(rc, csv.OptionsFrom(spec.Parser.Options))
		var perr error
		if schema != nil {
			perr = csv.ParseCsvWithSchema(split, schema, h)
		} else {
			perr = csv.ParseCsv(split, h)
		}
		metrics.RecordStep(job, "parse", perr, time.Since(start))
		if perr != nil {
			return fmt.Errorf("parse: %w", perr)
		}
		return nil
	})

	// Fan-out: every surviving record goes to the document and to storage.
	var written int64
	g.Go(func() error {
		if rowCh != nil {
			defer close(rowCh)
		}
		for rec := range recCh {
			if doc != nil {
				doc.add(rec)
				written++
			}
			if rowCh == nil {
				continue
			}
			select {
			case rowCh <- storage.RowFromRecord(rec):
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var load storage.LoadStats
	if repo != nil {
		g.Go(func() error {
			start := time.Now()
			var err error
			load, err = storage.LoadBatches(gctx, storage.Columns, rowCh, rt.batchSize, repo.CopyFrom)
			metrics.RecordStep(job, "load", err, time.Since(start))
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}
			return nil
		})
	}

	werr := g.Wait()
	sum.Written = written
	sum.Inserted = load.Rows
	sum.Batches = load.Batches
	sum.Failures = agg.first
	recordMetrics(job, sum)

	if werr != nil {
		logSummary(sum, agg, runStart)
		return sum, werr
	}

	if doc != nil {
		start := time.Now()
		err := writeDocument(spec.Output.Path, doc)
		metrics.RecordStep(job, "encode", err, time.Since(start))
		if err != nil {
			sum.Written = 0
			return sum, err
		}
	}
	logSummary(sum, agg, runStart)
	return sum, nil
}

func jobName(spec config.Pipeline) string {
	if spec.Job != "" {
		return spec.Job
	}
	return "csvkml"
}

func initRepository(ctx context.Context, spec config.Pipeline) (storage.Repository, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:  spec.Storage.Kind,
		DSN:   spec.Storage.DB.DSN,
		Table: spec.Storage.DB.Table,
	})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if spec.Storage.DB.AutoCreateTable {
		log.Printf("storage: auto-create table=%s kind=%s", spec.Storage.DB.Table, spec.Storage.Kind)
		if err := storage.EnsureTable(ctx, spec.Storage.Kind, repo, spec.Storage.DB.Table); err != nil {
			repo.Close()
			return nil, fmt.Errorf("apply DDL: %w", err)
		}
	}
	return repo, nil
}

// presetSchema resolves the schema named by the "schema" or "schema_path"
// parser options, or returns nil when the source carries its own header.
func presetSchema(ctx context.Context, opts config.Options) (*csv.Schema, error) {
	var headers []string
	switch {
	case opts.Has("schema"):
		headers = opts.StringSlice("schema")
	case opts.Has("schema_path"):
		path := opts.String("schema_path", "")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("schema_path: %w", err)
		}
		defer f.Close()
		split := csv.NewSplitter(f, csv.OptionsFrom(opts))
		if split.Next() {
			headers = split.Fields()
		} else if err := split.Err(); err != nil {
			return nil, fmt.Errorf("schema_path %s: %w", path, err)
		}
	default:
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, st := csv.ResolveSchema(headers)
	if st != csv.StatusOK {
		return nil, fmt.Errorf("preset schema: %w", st.Err())
	}
	return s, nil
}

func writeDocument(path string, doc documentSink) error {
	if path == "-" {
		return doc.encode(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := doc.encode(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("output %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("output %s: %w", path, err)
	}
	return nil
}

func recordMetrics(job string, sum Summary) {
	metrics.RecordLine(job, "ok", sum.OK)
	for st, n := range sum.ByStatus {
		metrics.RecordLine(job, st.String(), n)
	}
	metrics.RecordRow(job, "dropped", sum.Dropped)
	metrics.RecordRow(job, "written", sum.Written)
	metrics.RecordRow(job, "inserted", sum.Inserted)
	metrics.RecordBatches(job, sum.Batches)
}

func logSummary(sum Summary, agg *errAgg, start time.Time) {
	if agg.count > 0 {
		log.Printf("row failures: %d (showing first %d)", agg.count, len(agg.first))
		for i, s := range agg.first {
			log.Printf("  #%03d: %s", i+1, s)
		}
	}
	log.Printf("summary: id=%s lines=%d ok=%d invalid=%d no_latlon=%d bad_latlon=%d dropped=%d written=%d inserted=%d batches=%d elapsed=%s",
		sum.RunID, sum.Lines, sum.OK,
		sum.ByStatus[csv.StatusInvalidData], sum.ByStatus[csv.StatusNoLatLon], sum.ByStatus[csv.StatusBadLatLon],
		sum.Dropped, sum.Written, sum.Inserted, sum.Batches,
		time.Since(start).Truncate(time.Millisecond))
}

// IsSchemaError reports whether err came from a schema that could not be
// formed, so callers can tell bad input from infrastructure failures.
func IsSchemaError(err error) bool {
	return errors.Is(err, csv.ErrBlankLine)
}
