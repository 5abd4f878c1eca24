package etl

import (
	"os"
	"strconv"
	"sync"

	"csvkml/internal/config"
)

// runtimeConfig is the resolved batching and buffering for one run. Values
// come from the pipeline, then the environment, then defaults.
type runtimeConfig struct {
	batchSize  int
	bufferSize int
}

func newRuntimeConfig(spec config.Pipeline) runtimeConfig {
	return runtimeConfig{
		batchSize:  pickInt(spec.Runtime.BatchSize, getenvInt("CSVKML_BATCH_SIZE", 1000)),
		bufferSize: pickInt(spec.Runtime.ChannelBuffer, getenvInt("CSVKML_CH_BUFFER", 256)),
	}
}

// getenvInt reads an int from the environment, returning def when unset or
// invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt returns a when positive, otherwise b.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg counts failure messages and keeps the first limit of them.
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
}
