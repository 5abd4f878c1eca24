package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

// fakeBackend records every call in memory.
type fakeBackend struct {
	mu       sync.Mutex
	counters []counterCall
	hists    []histCall
	flushes  int
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hists = append(f.hists, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

// install swaps in a fake for the duration of the test. Tests using it must
// not run in parallel with each other.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	prev := SetBackend(fb)
	t.Cleanup(func() { SetBackend(prev) })
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("golf", "parse", nil, 2*time.Second)
	RecordStep("golf", "load", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.hists) != 2 {
		t.Fatalf("counters=%d hists=%d, want 2/2", len(fb.counters), len(fb.hists))
	}
	c0, c1 := fb.counters[0], fb.counters[1]
	if c0.name != StepTotal || c0.delta != 1 || c0.labels["status"] != "success" || c0.labels["step"] != "parse" {
		t.Fatalf("counter[0] = %+v", c0)
	}
	if c1.labels["status"] != "failure" || c1.labels["job"] != "golf" {
		t.Fatalf("counter[1] = %+v", c1)
	}
	if h := fb.hists[1]; h.name != StepDuration || h.value != 1.5 {
		t.Fatalf("hist[1] = %+v", h)
	}
}

func TestRecordLineRowBatches(t *testing.T) {
	fb := install(t)

	RecordLine("golf", "bad_lat_lon", 3)
	RecordLine("golf", "ok", 0) // ignored
	RecordRow("golf", "inserted", 18)
	RecordRow("golf", "dropped", -1) // ignored
	RecordBatches("golf", 2)

	want := []counterCall{
		{LinesTotal, 3, Labels{"job": "golf", "status": "bad_lat_lon"}},
		{RecordsTotal, 18, Labels{"job": "golf", "kind": "inserted"}},
		{BatchesTotal, 2, Labels{"job": "golf"}},
	}
	if len(fb.counters) != len(want) {
		t.Fatalf("counters = %+v", fb.counters)
	}
	for i, w := range want {
		g := fb.counters[i]
		if g.name != w.name || g.delta != w.delta || len(g.labels) != len(w.labels) {
			t.Fatalf("counter[%d] = %+v, want %+v", i, g, w)
		}
		for k, v := range w.labels {
			if g.labels[k] != v {
				t.Fatalf("counter[%d] label %s = %q, want %q", i, k, g.labels[k], v)
			}
		}
	}
}

func TestSetBackend_NilRestoresNop(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil || fb.flushes != 1 {
		t.Fatalf("Flush err=%v flushes=%d", err, fb.flushes)
	}
	prev := SetBackend(nil)
	if prev != Backend(fb) {
		t.Fatalf("SetBackend returned %T, want the fake", prev)
	}
	RecordRow("golf", "written", 5)
	if len(fb.counters) != 0 {
		t.Fatalf("fake received calls after being replaced")
	}
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
