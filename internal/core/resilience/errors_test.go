package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

// ==================== TransportErrorChecker Tests ====================

func TestTransportErrorChecker_NilError(t *testing.T) {
	checker := &TransportErrorChecker{}

	if checker.IsRetryable(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}

func TestTransportErrorChecker_NonRetryableError(t *testing.T) {
	checker := &TransportErrorChecker{}
	err := fmt.Errorf("wrapped: %w", ErrNonRetryable)

	if checker.IsRetryable(err) {
		t.Error("Expected ErrNonRetryable to not be retryable")
	}
}

func TestTransportErrorChecker_NetworkErrors(t *testing.T) {
	checker := &TransportErrorChecker{}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ECONNREFUSED", &net.OpError{Err: syscall.ECONNREFUSED}, true},
		{"ECONNRESET", &net.OpError{Err: syscall.ECONNRESET}, true},
		{"ENETUNREACH", &net.OpError{Err: syscall.ENETUNREACH}, true},
		{"EHOSTUNREACH", &net.OpError{Err: syscall.EHOSTUNREACH}, true},
		{"DNSError temporary", &net.DNSError{IsTemporary: true}, true},
		{"DNSError not temporary", &net.DNSError{IsTemporary: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.IsRetryable(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestTransportErrorChecker_TimeoutErrors(t *testing.T) {
	checker := &TransportErrorChecker{}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"timeout in message", errors.New("operation timeout"), true},
		{"deadline exceeded", errors.New("context deadline exceeded"), true},
		{"i/o timeout", errors.New("i/o timeout"), true},
		{"timed out", errors.New("request timed out"), true},
		{"not a timeout", errors.New("invalid request"), true}, // default retries all
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.IsRetryable(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestTransportErrorChecker_TemporaryInterface(t *testing.T) {
	checker := &TransportErrorChecker{}

	tempErr := &temporaryError{isTemp: true}
	notTempErr := &temporaryError{isTemp: false}

	if !checker.IsRetryable(tempErr) {
		t.Error("Expected temporary error to be retryable")
	}

	if checker.IsRetryable(notTempErr) {
		t.Error("Expected non-temporary error to not be retryable")
	}
}

type temporaryError struct {
	isTemp bool
}

func (e *temporaryError) Error() string {
	return "temporary error"
}

func (e *temporaryError) Temporary() bool {
	return e.isTemp
}

// ==================== Domain sentinel errors ====================

func TestErrDocumentConcurrentlyModified_Is(t *testing.T) {
	wrapped := fmt.Errorf("observe master: %w", ErrDocumentConcurrentlyModified)
	if !errors.Is(wrapped, ErrDocumentConcurrentlyModified) {
		t.Error("expected wrapped error to match ErrDocumentConcurrentlyModified")
	}
}

func TestErrReplicaNotConfigured_Is(t *testing.T) {
	wrapped := fmt.Errorf("replica 2: %w", ErrReplicaNotConfigured)
	if !errors.Is(wrapped, ErrReplicaNotConfigured) {
		t.Error("expected wrapped error to match ErrReplicaNotConfigured")
	}
}

// ==================== ChainedErrorChecker Tests ====================

func TestChainedErrorChecker_NilError(t *testing.T) {
	checker := &ChainedErrorChecker{
		Checkers: []RetryableErrorChecker{
			&TransportErrorChecker{},
			&AlwaysRetryChecker{},
		},
	}

	if checker.IsRetryable(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}

func TestChainedErrorChecker_AnyCheckerReturnsTrue(t *testing.T) {
	checker := &ChainedErrorChecker{
		Checkers: []RetryableErrorChecker{
			&NeverRetryChecker{},
			&AlwaysRetryChecker{},
			&NeverRetryChecker{},
		},
	}

	err := errors.New("test error")
	if !checker.IsRetryable(err) {
		t.Error("Expected chained checker to retry when any checker returns true")
	}
}

func TestChainedErrorChecker_AllCheckersReturnFalse(t *testing.T) {
	checker := &ChainedErrorChecker{
		Checkers: []RetryableErrorChecker{
			&NeverRetryChecker{},
			&NeverRetryChecker{},
		},
	}

	err := errors.New("test error")
	if checker.IsRetryable(err) {
		t.Error("Expected chained checker to not retry when all checkers return false")
	}
}

func TestChainedErrorChecker_EmptyCheckers(t *testing.T) {
	checker := &ChainedErrorChecker{Checkers: []RetryableErrorChecker{}}

	err := errors.New("test error")
	if checker.IsRetryable(err) {
		t.Error("Expected empty chained checker to not retry")
	}
}

// ==================== NeverRetryChecker / AlwaysRetryChecker ====================

func TestNeverRetryChecker(t *testing.T) {
	checker := &NeverRetryChecker{}

	tests := []struct {
		name string
		err  error
	}{
		{"nil error", nil},
		{"generic error", errors.New("test")},
		{"network error", &net.OpError{Err: syscall.ECONNREFUSED}},
		{"timeout error", errors.New("timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if checker.IsRetryable(tt.err) {
				t.Errorf("NeverRetryChecker should always return false, got true for %v", tt.err)
			}
		})
	}
}

func TestAlwaysRetryChecker(t *testing.T) {
	checker := &AlwaysRetryChecker{}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("test"), true},
		{"network error", &net.OpError{Err: syscall.ECONNREFUSED}, true},
		{"non-retryable error", fmt.Errorf("wrapped: %w", ErrNonRetryable), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.IsRetryable(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

// ==================== Helper Functions Tests ====================

func TestIsTransientNetworkError_NilError(t *testing.T) {
	if isTransientNetworkError(nil) {
		t.Error("Expected nil error to not be transient")
	}
}

func TestIsTransientNetworkError_NonNetworkError(t *testing.T) {
	err := errors.New("generic error")
	if isTransientNetworkError(err) {
		t.Error("Expected non-network error to not be transient")
	}
}

func TestIsTimeoutError_NilError(t *testing.T) {
	if isTimeoutError(nil) {
		t.Error("Expected nil error to not be timeout")
	}
}

func TestIsTimeoutError_TimeoutInterface(t *testing.T) {
	timeoutErr := &timeoutError{isTimeout: true}
	notTimeoutErr := &timeoutError{isTimeout: false}

	if !isTimeoutError(timeoutErr) {
		t.Error("Expected timeout error to be detected")
	}

	if isTimeoutError(notTimeoutErr) {
		t.Error("Expected non-timeout error to not be detected")
	}
}

type timeoutError struct {
	isTimeout bool
}

func (e *timeoutError) Error() string {
	if e.isTimeout {
		return "timeout error"
	}
	return "generic network error"
}

func (e *timeoutError) Timeout() bool {
	return e.isTimeout
}

func (e *timeoutError) Temporary() bool {
	return false
}

// ==================== Edge Cases ====================

func TestErrorCheckerWithWrappedErrors(t *testing.T) {
	checker := &TransportErrorChecker{}

	baseErr := errors.New("connection refused")
	wrappedErr := fmt.Errorf("failed to connect: %w", baseErr)
	doubleWrappedErr := fmt.Errorf("operation failed: %w", wrappedErr)

	if !checker.IsRetryable(baseErr) {
		t.Error("Expected base error to be retryable")
	}
	if !checker.IsRetryable(wrappedErr) {
		t.Error("Expected wrapped error to be retryable")
	}
	if !checker.IsRetryable(doubleWrappedErr) {
		t.Error("Expected double-wrapped error to be retryable")
	}
}

// Note: Benchmarks for error checkers are in retry_bench_test.go
