// Package lock provides per-bucket mutual exclusion for RefresherCore's
// poll loop. Where the original teacher package reached for a Redis-backed
// DistributedLock to coordinate across processes, this library only needs
// to coordinate goroutines within one process — a periodic poll and an
// on-demand poll for the same bucket must never run concurrently — so it is
// built on golang.org/x/sync/singleflight instead.
package lock

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// PollGuard ensures at most one poll attempt runs at a time for a given
// bucket name. Concurrent callers for the same key block on the first
// caller's result rather than triggering a second poll.
type PollGuard struct {
	group singleflight.Group
}

// NewPollGuard returns a ready-to-use PollGuard.
func NewPollGuard() *PollGuard {
	return &PollGuard{}
}

// Do runs fn for key if no call for that key is already in flight;
// otherwise it waits for the in-flight call and returns its result. shared
// reports whether the result came from a call made by someone else.
func (g *PollGuard) Do(key string, fn func() (interface{}, error)) (interface{}, error, bool) {
	return g.group.Do(key, fn)
}

// DoCtx is Do with context-cancellation awareness: if ctx is done before fn
// completes, DoCtx still lets fn run to completion (singleflight has no
// native cancellation) but returns ctx.Err() immediately to this caller.
func (g *PollGuard) DoCtx(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, error, bool) {
	type result struct {
		val    interface{}
		err    error
		shared bool
	}
	done := make(chan result, 1)
	go func() {
		val, err, shared := g.group.Do(key, fn)
		done <- result{val, err, shared}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case r := <-done:
		return r.val, r.err, r.shared
	}
}

// Forget tells the guard to forget key, so the next call for key is
// guaranteed to run fn rather than sharing a stale in-flight result.
func (g *PollGuard) Forget(key string) {
	g.group.Forget(key)
}
