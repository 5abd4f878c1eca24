// Command csvkml converts CSV placemark data into a KML or GeoJSON document
// and/or a database table.
//
// A pipeline comes from a JSON or YAML file (-config), from flags, or from
// both; flags override the file:
//
//	csvkml -in golf.csv -out golf.kml
//	csvkml -url https://example.com/golf.csv -format geojson -out -
//	csvkml -config configs/pipelines/golf.yaml -validate
//
// Exit status is 0 on success, 2 when the CSV header cannot form a schema,
// and 1 for any other failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"csvkml/internal/config"
	"csvkml/internal/etl"
	"csvkml/internal/metrics"
	"csvkml/internal/metrics/datadog"
	"csvkml/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "csvkml/internal/storage/all"
)

const (
	exitOK     = 0
	exitFail   = 1
	exitSchema = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	cfgPath     string
	in          string
	url         string
	out         string
	format      string
	name        string
	schema      string
	comma       string
	validate    bool
	verbose     bool
	backend     string
	pushGateway string
	dogstatsd   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("csvkml", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.cfgPath, "config", "", "pipeline config path (.json, .yaml or .yml)")
	fs.StringVar(&o.in, "in", "", "input CSV path (\"-\" for stdin)")
	fs.StringVar(&o.url, "url", "", "input CSV URL (http or https)")
	fs.StringVar(&o.out, "out", "", "output document path (\"-\" for stdout)")
	fs.StringVar(&o.format, "format", "", "output format: kml, geojson or none")
	fs.StringVar(&o.name, "name", "", "document name (defaults to the input file name)")
	fs.StringVar(&o.schema, "schema", "", "comma-separated header to use when the input has none")
	fs.StringVar(&o.comma, "comma", "", "field delimiter (single character)")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	fs.StringVar(&o.backend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (env METRICS_BACKEND)")
	fs.StringVar(&o.pushGateway, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	fs.StringVar(&o.dogstatsd, "dogstatsd-addr", "", "DogStatsD address (env DD_DOGSTATSD_ADDR)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// buildPipeline loads the config file, if any, and applies flag overrides.
func buildPipeline(o options) (config.Pipeline, error) {
	var p config.Pipeline
	if o.cfgPath != "" {
		var err error
		if p, err = config.Load(o.cfgPath); err != nil {
			return p, err
		}
	}
	if p.Parser.Kind == "" {
		p.Parser.Kind = "csv"
	}
	if p.Parser.Options == nil {
		p.Parser.Options = config.Options{}
	}

	switch {
	case o.in != "":
		p.Source = config.Source{Kind: "file", File: config.SourceFile{Path: o.in}}
	case o.url != "":
		p.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: o.url}}
	}
	if o.schema != "" {
		p.Parser.Options["schema"] = splitList(o.schema)
		delete(p.Parser.Options, "schema_path")
	}
	if o.comma != "" {
		p.Parser.Options["comma"] = o.comma
	}

	if o.format != "" {
		p.Output.Kind = o.format
	}
	if o.out != "" {
		p.Output.Path = o.out
		if p.Output.Kind == "" {
			p.Output.Kind = formatFromPath(o.out)
		}
	}
	if o.name != "" {
		p.Output.Name = o.name
	}
	return p, nil
}

func splitList(s string) []any {
	parts := strings.Split(s, ",")
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

func formatFromPath(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".geojson") || strings.HasSuffix(strings.ToLower(path), ".json") {
		return "geojson"
	}
	return "kml"
}

// setupMetrics installs the selected backend and returns a func that
// flushes and releases it.
func setupMetrics(o options, job string) func() {
	backendName := o.backend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := o.pushGateway
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v backend=%v job_name=%v", gwURL, backendName, job)
		metrics.SetBackend(b)
		return flushMetrics

	case "datadog":
		addr := o.dogstatsd
		if addr == "" {
			addr = os.Getenv("DD_DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, GlobalTags: []string{"job:" + job}})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v backend=%v job_name=%v", addr, backendName, job)
		metrics.SetBackend(b)
		return func() {
			flushMetrics()
			if err := b.Close(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}

	case "", "none":
		if o.verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	return func() {}
}

func flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	p, err := buildPipeline(o)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning && !o.verbose && !o.validate {
			continue
		}
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(stderr, "configuration is invalid")
		return exitFail
	}
	if o.validate {
		fmt.Fprintln(stderr, "configuration is valid")
		return exitOK
	}

	job := p.Job
	if job == "" {
		job = "csvkml"
	}
	defer setupMetrics(o, job)()

	start := time.Now()
	if o.verbose {
		log.Printf("pipeline: source=%s output=%s path=%s storage=%s table=%s",
			p.Source.Kind, p.Output.Kind, p.Output.Path, p.Storage.Kind, p.Storage.DB.Table)
	}

	sum, err := etl.Run(ctx, p)
	if err != nil {
		fmt.Fprintf(stderr, "csvkml: %v\n", err)
		if etl.IsSchemaError(err) {
			return exitSchema
		}
		return exitFail
	}
	if o.verbose {
		log.Printf("completed run=%s lines=%d ok=%d in %s",
			sum.RunID, sum.Lines, sum.OK, time.Since(start).Truncate(time.Millisecond))
	}
	return exitOK
}
