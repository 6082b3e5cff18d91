package resilience

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Delay produces the wait duration before the next poll attempt.
// ObserverCore is handed a Delay for pacing rounds; RefresherCore paces its
// periodic tick with a FixedDelay built from SetTickInterval.
type Delay interface {
	// Next returns how long to wait after attempt attempts have been made:
	// callers pass 1 for the wait after the first attempt and increment by
	// one for each later wait.
	Next(attempt int) time.Duration
}

// ExponentialDelay returns Base × Multiplier^attempt, capped at Max. It
// takes its settings through a backoff.ExponentialBackOff but computes the
// curve itself: no jitter is applied, and it never signals a stop, so it
// puts no bound on the number of attempts.
type ExponentialDelay struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
}

// NewExponentialDelay returns an ExponentialDelay with the given base delay,
// cap, and multiplier (growth factor between attempts).
func NewExponentialDelay(base, max time.Duration, multiplier float64) *ExponentialDelay {
	return &ExponentialDelay{Base: base, Max: max, Multiplier: multiplier}
}

// Next returns the exponentially-growing delay for attempt, capped at Max.
func (d *ExponentialDelay) Next(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.Base
	b.MaxInterval = d.Max
	b.Multiplier = d.Multiplier
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0

	next := b.InitialInterval
	for i := 0; i < attempt; i++ {
		next = time.Duration(float64(next) * b.Multiplier)
		if next > d.Max {
			next = d.Max
			break
		}
	}
	return next
}

// FixedDelay always returns the same wait duration, for polling loops that
// don't want backoff at all — RefresherCore's periodic tick uses one.
type FixedDelay struct {
	Interval time.Duration
}

// NewFixedDelay returns a Delay that always waits interval.
func NewFixedDelay(interval time.Duration) *FixedDelay {
	return &FixedDelay{Interval: interval}
}

// Next returns Interval regardless of attempt.
func (d *FixedDelay) Next(attempt int) time.Duration {
	return d.Interval
}
