package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestFor_SmallChunk(t *testing.T) {
	// Test that small work units fall back to sequential.
	cfg := DefaultConfig()

	var counter int64
	n := cfg.MinChunkSize - 1

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestForEach_SequentialOrder(t *testing.T) {
	var order []int
	err := ForEach(context.Background(), 5, 1, func(_ context.Context, i int) error {
		order = append(order, i)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach failed: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Errorf("call %d got index %d", i, v)
		}
	}
	if len(order) != 5 {
		t.Errorf("Expected 5 calls, got %d", len(order))
	}
}

func TestForEach_Parallel(t *testing.T) {
	results := make([]int, 64)
	err := ForEach(context.Background(), len(results), 4, func(_ context.Context, i int) error {
		results[i] = i * i
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach failed: %v", err)
	}
	for i, v := range results {
		if v != i*i {
			t.Errorf("results[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestForEach_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	for _, workers := range []int{1, 3} {
		var calls int64
		err := ForEach(context.Background(), 10, workers, func(_ context.Context, i int) error {
			atomic.AddInt64(&calls, 1)
			if i == 2 {
				return boom
			}
			return nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("workers=%d: expected boom, got %v", workers, err)
		}
		if workers == 1 && calls != 3 {
			t.Errorf("sequential run made %d calls after failure, want 3", calls)
		}
	}
}

func TestForEach_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	err := ForEach(ctx, 10, 1, func(_ context.Context, _ int) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no calls, got %d", calls)
	}
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfgSeq)
		}
	})
}
