// Command csvprobe-web starts the csvkml web UI: a probe form plus the
// /api/probe and /api/convert endpoints.
//
// Usage:
//
//	csvprobe-web -addr :8080
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"csvkml/internal/webui"
)

type server interface {
	ListenAndServe() error
}

// newServer is swapped in tests.
var newServer = func(cfg webui.Config) server { return webui.NewServer(cfg) }

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	if err := run(os.Args[1:], logger); err != nil {
		logger.Fatal(err)
	}
}

func run(args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("csvprobe-web", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := newServer(webui.Config{Addr: *addr})
	logger.Printf("listening on %s", *addr)
	return srv.ListenAndServe()
}
