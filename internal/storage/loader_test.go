package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func feed(n int) <-chan []any {
	in := make(chan []any, n)
	for i := 0; i < n; i++ {
		in <- []any{int64(i + 2), "x"}
	}
	close(in)
	return in
}

func TestLoadBatches_GroupsRows(t *testing.T) {
	t.Parallel()

	var sizes []int
	copyFn := func(_ context.Context, cols []string, rows [][]any) (int64, error) {
		if len(cols) != 2 {
			t.Errorf("columns = %v", cols)
		}
		sizes = append(sizes, len(rows))
		return int64(len(rows)), nil
	}

	st, err := LoadBatches(context.Background(), []string{"a", "b"}, feed(7), 3, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches: %v", err)
	}
	if st.Rows != 7 || st.Batches != 3 {
		t.Fatalf("stats = %+v, want 7 rows in 3 batches", st)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes = %v, want [3 3 1]", sizes)
	}
}

func TestLoadBatches_EmptyInput(t *testing.T) {
	t.Parallel()

	calls := 0
	copyFn := func(context.Context, []string, [][]any) (int64, error) {
		calls++
		return 0, nil
	}
	st, err := LoadBatches(context.Background(), Columns, feed(0), 10, copyFn)
	if err != nil || st.Rows != 0 || st.Batches != 0 || calls != 0 {
		t.Fatalf("stats=%+v err=%v calls=%d", st, err, calls)
	}
}

func TestLoadBatches_ErrorStops(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("copy failed")
	calls := 0
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		calls++
		if calls == 2 {
			return 1, wantErr
		}
		return int64(len(rows)), nil
	}

	st, err := LoadBatches(context.Background(), []string{"c"}, feed(6), 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 2 {
		t.Fatalf("copyFn calls = %d, want 2", calls)
	}
	if st.Rows != 3 || st.Batches != 1 {
		t.Fatalf("stats = %+v, want rows=3 batches=1", st)
	}
}

func TestLoadBatches_BadArgs(t *testing.T) {
	t.Parallel()

	ok := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }
	if _, err := LoadBatches(context.Background(), nil, feed(0), 0, ok); err == nil {
		t.Fatalf("batchSize 0 must fail")
	}
	if _, err := LoadBatches(context.Background(), nil, feed(0), 1, nil); err == nil {
		t.Fatalf("nil copyFn must fail")
	}
}

func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan []any) // never written, never closed

	errCh := make(chan error, 1)
	go func() {
		_, err := LoadBatches(ctx, []string{"c"}, in, 2, func(context.Context, []string, [][]any) (int64, error) {
			return 0, nil
		})
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("LoadBatches did not return after cancel")
	}
}
