package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Sentinel errors of the retry helpers and the observer core.
var (
	// ErrMaxRetriesExceeded names the exhausted-retries condition. WithRetry
	// and WithRetryFunc do not return it: on exhaustion they return an error
	// that wraps the operation's last error.
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")

	// ErrNonRetryable marks an error explicitly non-retryable.
	ErrNonRetryable = errors.New("error is not retryable")

	// ErrDocumentConcurrentlyModified is returned by the observer when the
	// master reports a CAS different from the one being observed (outside
	// the delete-confirmation zero-CAS case). It ends the whole Observe
	// call: the document has moved on. A replica with a different CAS only
	// contributes nothing to the round.
	ErrDocumentConcurrentlyModified = errors.New("document cas changed during observation")

	// ErrReplicaNotConfigured is returned before any observe request is sent
	// when the persist or replicate criterion asks for more replicas than
	// the bucket's topology has.
	ErrReplicaNotConfigured = errors.New("replica index exceeds configured replica count")
)

// TransportErrorChecker classifies facade transport errors (DNS failures,
// connection resets, timeouts) as retryable. It does not understand
// protocol-level failures such as ErrDocumentConcurrentlyModified — those
// are decided by the caller, not the transport layer.
type TransportErrorChecker struct{}

// IsRetryable implements RetryableErrorChecker.
func (c *TransportErrorChecker) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNonRetryable) {
		return false
	}

	if isTransientNetworkError(err) {
		return true
	}

	if isTimeoutError(err) {
		return true
	}

	type temporary interface {
		Temporary() bool
	}
	if te, ok := err.(temporary); ok {
		return te.Temporary()
	}

	return true
}

// isTransientNetworkError determines if a network error is transient.
func isTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
		if errors.Is(opErr.Err, syscall.ECONNRESET) {
			return true
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return true
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return true
		}
	}

	return false
}

// isTimeoutError checks if an error represents a timeout.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	timeoutIndicators := []string{
		"timeout",
		"deadline exceeded",
		"context deadline exceeded",
		"i/o timeout",
		"timed out",
	}
	for _, indicator := range timeoutIndicators {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}

	type timeout interface {
		Timeout() bool
	}
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}

	return false
}

// ChainedErrorChecker chains multiple error checkers. Returns true if ANY
// checker says the error is retryable.
type ChainedErrorChecker struct {
	Checkers []RetryableErrorChecker
}

// IsRetryable implements RetryableErrorChecker.
func (c *ChainedErrorChecker) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	for _, checker := range c.Checkers {
		if checker.IsRetryable(err) {
			return true
		}
	}
	return false
}

// NeverRetryChecker always returns false.
type NeverRetryChecker struct{}

// IsRetryable implements RetryableErrorChecker.
func (c *NeverRetryChecker) IsRetryable(err error) bool {
	return false
}

// AlwaysRetryChecker returns true for any non-nil error.
type AlwaysRetryChecker struct{}

// IsRetryable implements RetryableErrorChecker.
func (c *AlwaysRetryChecker) IsRetryable(err error) bool {
	return err != nil
}
