package resilience

// RetryStrategy decides whether a transient transport error on a single
// observe request should be swallowed (the round continues, a later round
// retries the request) or propagated immediately as a fatal error for the
// whole Observe call. It does not bound how many rounds Observe performs:
// per the durability-observation design, Observe never exhausts on its own
// and keeps rounding until the criterion is satisfied or the caller's
// context is done.
type RetryStrategy interface {
	ShouldRetryObserve() bool
}

type alwaysRetryObserve struct{}

func (alwaysRetryObserve) ShouldRetryObserve() bool { return true }

// AlwaysRetryObserve returns a RetryStrategy that swallows every transient
// transport error, leaving Observe's round loop and context cancellation as
// the only things that can end the call.
func AlwaysRetryObserve() RetryStrategy { return alwaysRetryObserve{} }

type neverRetryObserve struct{}

func (neverRetryObserve) ShouldRetryObserve() bool { return false }

// NeverRetryObserve returns a RetryStrategy that propagates the first
// transport error it sees, failing the whole Observe call immediately
// instead of waiting for a later round to retry it.
func NeverRetryObserve() RetryStrategy { return neverRetryObserve{} }
