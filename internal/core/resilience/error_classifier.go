package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ClassifyError labels a transport error for the "error_type" dimension of
// RetryMetrics counters. Unlike TransportErrorChecker it doesn't decide
// retryability, only how the failure should be bucketed on a dashboard.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "context_cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "context_deadline"
	}

	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	// Network operation errors
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return "network"
		}
		if errors.Is(opErr.Err, syscall.ECONNRESET) {
			return "network"
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return "network"
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return "network"
		}
		return "network"
	}

	// Check error message for common patterns
	errMsg := strings.ToLower(err.Error())

	if errors.Is(err, ErrDocumentConcurrentlyModified) {
		return "cas_mismatch"
	}
	if errors.Is(err, ErrReplicaNotConfigured) {
		return "replica_not_configured"
	}

	// Timeout errors
	if strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") ||
		strings.Contains(errMsg, "timed out") ||
		strings.Contains(errMsg, "i/o timeout") {
		return "timeout"
	}

	// Network errors (generic)
	if strings.Contains(errMsg, "connection") ||
		strings.Contains(errMsg, "network") {
		return "network"
	}

	// Default
	return "unknown"
}
