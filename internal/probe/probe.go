// Package probe samples the head of a CSV file or URL and reports how csvkml
// would read it: the resolved column roles, per-status line counts and the
// first failing lines. Only the first MaxBytes are fetched; for URLs this is
// an HTTP Range request.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"csvkml/internal/datasource/file"
	"csvkml/internal/datasource/httpds"
	"csvkml/internal/parser/csv"
)

const (
	// DefaultMaxBytes is used when Options.MaxBytes is not positive.
	DefaultMaxBytes = 64 << 10
	maxFailures     = 10
)

// Options control sampling and rendering.
type Options struct {
	// Path is a local file ("-" for stdin). Takes precedence over URL.
	Path string
	// URL is an http(s):// or file:// location.
	URL string

	MaxBytes int
	// Delimiter is the field separator; zero means ','.
	Delimiter rune
	// MaxRows stops after this many data lines; zero means the whole sample.
	MaxRows int

	// OutputJSON renders Body as JSON instead of text.
	OutputJSON bool
	// AllowInsecureTLS skips certificate verification for https URLs.
	AllowInsecureTLS bool
	// SaveSample, when set, writes the sampled bytes to this path.
	SaveSample string
}

// Column describes one header cell.
type Column struct {
	Index  int    `json:"index"`
	Header string `json:"header"`
	Role   string `json:"role"`
}

// Failure is one data line that did not produce a record.
type Failure struct {
	Line   int    `json:"line"`
	Status string `json:"status"`
}

// Result is what Probe found. Body is the rendered text or JSON.
type Result struct {
	Columns  []Column       `json:"columns"`
	Lines    int            `json:"lines"`
	Counts   map[string]int `json:"counts"`
	Failures []Failure      `json:"failures"`

	// Truncated reports that the sample hit MaxBytes and its last partial
	// line was discarded.
	Truncated bool `json:"truncated"`

	Body []byte `json:"-"`
}

// peekFn fetches up to n bytes from the sample location. Tests replace it.
var peekFn = func(ctx context.Context, opt Options, n int) ([]byte, error) {
	switch {
	case opt.Path != "":
		return file.NewLocal(opt.Path).Head(ctx, n)
	case strings.HasPrefix(opt.URL, "file://"):
		return file.NewLocal(strings.TrimPrefix(opt.URL, "file://")).Head(ctx, n)
	case opt.URL != "":
		c := httpds.NewClient(httpds.Config{InsecureSkipVerify: opt.AllowInsecureTLS})
		return c.FetchFirstBytes(ctx, opt.URL, n)
	default:
		return nil, fmt.Errorf("probe: a path or url is required")
	}
}

// Probe samples the configured source and parses the sample.
func Probe(ctx context.Context, opt Options) (Result, error) {
	res := Result{Counts: make(map[string]int), Failures: []Failure{}}

	n := opt.MaxBytes
	if n <= 0 {
		n = DefaultMaxBytes
	}
	data, err := peekFn(ctx, opt, n)
	if err != nil {
		return res, err
	}
	if len(data) >= n {
		i := bytes.LastIndexByte(data, '\n')
		if i < 0 {
			return res, fmt.Errorf("probe: first line is longer than %d bytes", n)
		}
		data = data[:i+1]
		res.Truncated = true
	}
	if opt.SaveSample != "" {
		if err := writeSample(opt.SaveSample, data); err != nil {
			return res, err
		}
	}

	src := &headerTap{LineSource: csv.NewSplitter(bytes.NewReader(data), csv.Options{Comma: opt.Delimiter})}
	h := csv.HandlerFunc(func(line int, st csv.Status, _ *csv.Record) bool {
		res.Lines++
		res.Counts[st.String()]++
		if st != csv.StatusOK && len(res.Failures) < maxFailures {
			res.Failures = append(res.Failures, Failure{Line: line, Status: st.String()})
		}
		return opt.MaxRows <= 0 || res.Lines < opt.MaxRows
	})
	p := csv.NewParser(src, h)
	if err := p.Parse(); err != nil {
		return res, fmt.Errorf("probe: %w", err)
	}

	s := p.Schema()
	for i, hdr := range src.headers {
		res.Columns = append(res.Columns, Column{Index: i, Header: hdr, Role: s.Role(i).String()})
	}

	if opt.OutputJSON {
		body, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return res, err
		}
		res.Body = append(body, '\n')
	} else {
		res.Body = renderText(res, s.HasPosition())
	}
	return res, nil
}

// headerTap remembers the first line it hands to the parser.
type headerTap struct {
	csv.LineSource
	headers []string
	seen    bool
}

func (t *headerTap) Fields() []string {
	f := t.LineSource.Fields()
	if !t.seen {
		t.seen = true
		t.headers = append([]string(nil), f...)
	}
	return f
}

// Line forwards the physical line number when the wrapped source tracks it.
func (t *headerTap) Line() int {
	if ln, ok := t.LineSource.(interface{ Line() int }); ok {
		return ln.Line()
	}
	return 0
}

func renderText(res Result, hasPosition bool) []byte {
	var b bytes.Buffer
	b.WriteString("index,header,role\n")
	for _, c := range res.Columns {
		fmt.Fprintf(&b, "%d,%s,%s\n", c.Index, c.Header, c.Role)
	}
	if !hasPosition {
		b.WriteString("# no latitude/longitude columns: every line will fail\n")
	}
	fmt.Fprintf(&b, "# lines=%d", res.Lines)
	for _, st := range csv.Statuses {
		if n := res.Counts[st.String()]; n > 0 {
			fmt.Fprintf(&b, " %s=%d", st, n)
		}
	}
	if res.Truncated {
		b.WriteString(" (sample truncated)")
	}
	b.WriteByte('\n')
	for _, f := range res.Failures {
		fmt.Fprintf(&b, "# line %d: %s\n", f.Line, f.Status)
	}
	return b.Bytes()
}

// DecodeDelimiter converts a user-supplied string into a delimiter rune,
// defaulting to ','. "\t" and "tab" select a tab; "semicolon" and "pipe"
// name characters that are awkward in a query string.
func DecodeDelimiter(s string) rune {
	switch s {
	case "":
		return ','
	case `\t`, "tab":
		return '\t'
	case "semicolon":
		return ';'
	case "pipe":
		return '|'
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ','
	}
	return r
}
