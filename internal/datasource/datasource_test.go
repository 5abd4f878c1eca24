package datasource

import (
	"testing"

	"csvkml/internal/config"
	"csvkml/internal/datasource/file"
	"csvkml/internal/datasource/httpds"
)

func TestNew(t *testing.T) {
	t.Parallel()

	s, err := New(config.Source{Kind: "file", File: config.SourceFile{Path: "a.csv"}})
	if err != nil {
		t.Fatalf("New(file): %v", err)
	}
	if l, ok := s.(*file.Local); !ok || l.Path() != "a.csv" {
		t.Fatalf("file source = %#v", s)
	}

	s, err = New(config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: "https://example.com/a.csv", MaxRetries: 2}})
	if err != nil {
		t.Fatalf("New(http): %v", err)
	}
	if h, ok := s.(*httpds.Source); !ok || h.URL() != "https://example.com/a.csv" {
		t.Fatalf("http source = %#v", s)
	}

	if _, err := New(config.Source{Kind: "s3"}); err == nil {
		t.Fatalf("unknown kind must fail")
	}
}
