package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"csvkml/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("golf", ""); err == nil {
		t.Fatalf("missing gateway URL must fail")
	}
	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "csvkml" {
		t.Fatalf("jobName = %q, want csvkml", b.jobName)
	}
}

func TestBackend_Counters(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("golf", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.LinesTotal, 3, metrics.Labels{"job": "golf", "status": "bad_lat_lon"})
	b.IncCounter(metrics.LinesTotal, 2, metrics.Labels{"job": "golf", "status": "bad_lat_lon"})
	b.IncCounter(metrics.RecordsTotal, 18, metrics.Labels{"job": "golf", "kind": "written"})
	b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{"job": "golf"})
	b.IncCounter("not_a_metric", 99, nil)
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "parse", "status": "success"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "parse", "status": "success"})
	b.ObserveHistogram("not_a_metric", 1, nil)

	if v := counterValue(t, b.lineCounter.WithLabelValues("bad_lat_lon")); v != 5 {
		t.Fatalf("lines{bad_lat_lon} = %v, want 5", v)
	}
	if v := counterValue(t, b.recordCounter.WithLabelValues("written")); v != 18 {
		t.Fatalf("records{written} = %v, want 18", v)
	}
	if v := counterValue(t, b.batchCounter); v != 1 {
		t.Fatalf("batches = %v, want 1", v)
	}
	if v := counterValue(t, b.stepCounter.WithLabelValues("parse", "success")); v != 1 {
		t.Fatalf("steps = %v, want 1", v)
	}

	m := &dto.Metric{}
	if err := b.stepDuration.WithLabelValues("parse", "success").(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("summary write: %v", err)
	}
	if m.GetSummary().GetSampleCount() != 1 || m.GetSummary().GetSampleSum() != 0.25 {
		t.Fatalf("summary = %v", m.GetSummary())
	}
}

func TestBackend_FlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("golf", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 4, metrics.Labels{"kind": "inserted"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/metrics/job/golf" {
		t.Fatalf("push path = %q", path)
	}
	if !strings.Contains(body, metrics.RecordsTotal) {
		t.Fatalf("pushed body does not mention %s", metrics.RecordsTotal)
	}
}

func TestBackend_FlushError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, _ := NewBackend("golf", srv.URL)
	if err := b.Flush(); err == nil || !strings.Contains(err.Error(), "prompush: push") {
		t.Fatalf("Flush err = %v", err)
	}
}
