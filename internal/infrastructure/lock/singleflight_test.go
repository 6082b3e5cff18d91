package lock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPollGuard_DedupesConcurrentCallers(t *testing.T) {
	g := NewPollGuard()

	var calls int
	var mu sync.Mutex
	start := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			v, err, _ := g.Do("bucket-a", func() (interface{}, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[idx] = v.(int)
		}(i)
	}
	close(start)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected exactly one underlying call, got %d", calls)
	}
	for _, r := range results {
		if r != 42 {
			t.Errorf("expected result 42, got %d", r)
		}
	}
}

func TestPollGuard_DistinctKeysRunIndependently(t *testing.T) {
	g := NewPollGuard()

	var calls int
	var mu sync.Mutex

	for _, key := range []string{"bucket-a", "bucket-b"} {
		_, _, _ = g.Do(key, func() (interface{}, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil, nil
		})
	}

	if calls != 2 {
		t.Errorf("expected one call per key, got %d", calls)
	}
}

func TestPollGuard_DoCtx_CancelledBeforeCompletion(t *testing.T) {
	g := NewPollGuard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err, _ := g.DoCtx(ctx, "bucket-a", func() (interface{}, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPollGuard_ForgetAllowsRerun(t *testing.T) {
	g := NewPollGuard()

	var calls int
	run := func() {
		_, _, _ = g.Do("bucket-a", func() (interface{}, error) {
			calls++
			return nil, nil
		})
	}

	run()
	g.Forget("bucket-a")
	run()

	if calls != 2 {
		t.Errorf("expected 2 calls after Forget, got %d", calls)
	}
}
