package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn inserts one batch of rows aligned to columns and returns the number
// of rows the backend reports as inserted. Repository.CopyFrom satisfies it.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadStats summarizes a LoadBatches run.
type LoadStats struct {
	Rows    int64
	Batches int64
}

// LoadBatches drains rows from in, groups them into batches of batchSize and
// hands each non-empty batch to copyFn. It stops at the first copy error or
// when ctx is done; rows from batches already copied are still counted.
//
// A progress line is logged after every successful batch.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (LoadStats, error) {
	var st LoadStats
	if batchSize <= 0 {
		return st, fmt.Errorf("loader: batchSize must be > 0")
	}
	if copyFn == nil {
		return st, fmt.Errorf("loader: copyFn must not be nil")
	}

	batch := make([][]any, 0, batchSize)
	start := time.Now()
	last := start

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		st.Rows += n
		size := len(batch)
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: copy failed batch=%d size=%d inserted=%d total=%d err=%v",
				st.Batches+1, size, n, st.Rows, err)
			return err
		}
		st.Batches++

		now := time.Now()
		rps := 0.0
		if d := now.Sub(last); d > 0 {
			rps = float64(n) / d.Seconds()
		}
		log.Printf("loader: batch=%d inserted=%d total=%d rps=%.0f elapsed=%s",
			st.Batches, n, st.Rows, rps, now.Sub(start).Truncate(time.Millisecond))
		last = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case row, ok := <-in:
			if !ok {
				pending := len(batch)
				if err := flush(); err != nil {
					return st, err
				}
				log.Printf("loader: input closed final_flush=%d batches=%d total=%d", pending, st.Batches, st.Rows)
				return st, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return st, err
				}
			}
		}
	}
}
