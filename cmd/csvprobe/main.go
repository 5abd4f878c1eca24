// Command csvprobe samples the head of a CSV file or URL and prints how
// csvkml would read it: column roles, per-status line counts and the first
// failing lines.
//
//	csvprobe -url https://example.com/golf.csv -bytes 20000
//	csvprobe -path golf.csv -json
//	csvprobe -list sources.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"csvkml/internal/datasource/file"
	"csvkml/internal/probe"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "csvprobe:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("csvprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		url       = fs.String("url", "", "http(s):// or file:// URL of the CSV to sample")
		path      = fs.String("path", "", "local CSV path (\"-\" for stdin); overrides -url")
		list      = fs.String("list", "", "file of paths or URLs, one per line")
		maxBytes  = fs.Int("bytes", probe.DefaultMaxBytes, "number of bytes to sample from the start of the file")
		delimiter = fs.String("delimiter", ",", "field delimiter (single character, or \\t / tab)")
		maxRows   = fs.Int("max-rows", 0, "stop after this many data lines (0 = whole sample)")
		asJSON    = fs.Bool("json", false, "print JSON instead of text")
		insecure  = fs.Bool("insecure", false, "skip TLS certificate verification")
		save      = fs.String("save", "", "write the sampled bytes to this file")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	opt := probe.Options{
		Path:             *path,
		URL:              *url,
		MaxBytes:         *maxBytes,
		Delimiter:        probe.DecodeDelimiter(*delimiter),
		MaxRows:          *maxRows,
		OutputJSON:       *asJSON,
		AllowInsecureTLS: *insecure,
		SaveSample:       *save,
	}

	if *list == "" {
		res, err := probe.Probe(ctx, opt)
		if err != nil {
			return err
		}
		_, err = stdout.Write(res.Body)
		return err
	}

	locs, err := file.ReadList(*list)
	if err != nil {
		return err
	}
	failed := 0
	for _, loc := range locs {
		o := opt
		o.Path, o.URL, o.SaveSample = "", "", ""
		if strings.Contains(loc, "://") {
			o.URL = loc
		} else {
			o.Path = loc
		}
		fmt.Fprintf(stdout, "## %s\n", loc)
		res, err := probe.Probe(ctx, o)
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", loc, err)
			continue
		}
		if _, err := stdout.Write(res.Body); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(locs))
	}
	return nil
}
