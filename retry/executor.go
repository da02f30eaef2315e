package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	ulserrors "github.com/AlvinCoded/universal-license-sdk-go/errors"
)

// Operation is a single attemptable unit of work.
type Operation func(ctx context.Context) error

// OnRetry is invoked before each retry (never before the first
// attempt) with the error that triggered the retry and the 1-based
// retry number. It is a pure observability side-channel; returning is
// the only way to continue.
type OnRetry func(err error, attempt int)

// Executor applies the backoff policy to an operation. The retry
// budget lives in an atomic so SetMaxRetries is safe to call while an
// Execute is in flight; the rest of the policy is immutable.
type Executor struct {
	config     Config
	maxRetries atomic.Int32
}

// NewExecutor creates an executor with the given policy.
func NewExecutor(config Config) *Executor {
	e := &Executor{config: config}
	n := config.MaxRetries
	if n < 0 {
		n = 0
	}
	e.maxRetries.Store(int32(n))
	return e
}

// Config returns the executor's policy with the current retry budget.
func (e *Executor) Config() Config {
	config := e.config
	config.MaxRetries = int(e.maxRetries.Load())
	return config
}

// SetMaxRetries adjusts the retry budget at runtime. The rest of the
// policy stays fixed for the executor's lifetime. An Execute already
// in flight keeps the budget it started with.
func (e *Executor) SetMaxRetries(n int) {
	if n < 0 {
		n = 0
	}
	e.maxRetries.Store(int32(n))
}

// Execute runs op up to MaxRetries+1 times. Non-retryable errors
// propagate on first occurrence; exhausting the budget propagates the
// last error. The wait between attempts is context-aware.
func (e *Executor) Execute(ctx context.Context, op Operation, onRetry OnRetry) error {
	var lastErr error
	maxRetries := int(e.maxRetries.Load())

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if onRetry != nil {
				onRetry(lastErr, attempt)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.config.Delay(attempt - 1)):
			}
		}

		if err := op(ctx); err != nil {
			lastErr = err
			if !e.config.IsRetryable(err) {
				return err
			}
			continue
		}
		return nil
	}

	return lastErr
}

// IsRetryable reports whether err is worth another attempt: a NETWORK
// typed error or retryable HTTP status, a low-level connection failure
// (reset, refused, DNS, unreachable), or a transport layer surfacing a
// timeout as plain text.
func (c Config) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if status := ulserrors.StatusOf(err); status != 0 {
		for _, code := range c.RetryableStatusCodes {
			if status == code {
				return true
			}
		}
		return false
	}
	if ulserrors.IsRetryable(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return true
	}
	for _, fragment := range c.RetryableErrors {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
