package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/zeebo/xxh3"
)

// StatusError is returned when the server answers with a non-2xx status that
// is not worth retrying (or retries ran out on one).
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: status %d", e.URL, e.Status)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: resp.Request.URL.String(), Status: resp.StatusCode}
	}
	return nil
}

// Source adapts a URL to datasource.Source.
type Source struct {
	c   *Client
	url string
}

// NewSource returns a Source that GETs url through c.
func NewSource(c *Client, url string) *Source {
	return &Source{c: c, url: url}
}

// URL returns the configured URL.
func (s *Source) URL() string { return s.url }

// Open GETs the URL and returns its body. Non-2xx responses fail with a
// *StatusError.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.c.Get(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// DocumentName derives a short document name from a CSV URL: the last path
// segment without its extension, or a stable hash when the path is empty.
func DocumentName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		base := path.Base(u.Path)
		base = strings.TrimSuffix(base, path.Ext(base))
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	return fmt.Sprintf("%016x", xxh3.HashString(rawURL))
}
