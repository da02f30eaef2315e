// Package retry provides the exponential backoff policy and the retry
// executor used by the HTTP transport. The policy is a pure function;
// the executor owns the sleep-and-reattempt loop and the retryability
// predicate.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Default policy values applied by DefaultConfig.
const (
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = 1 * time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultBackoffMultiplier = 2.0

	// jitterFraction is the upper bound of the uniform jitter added to
	// each delay, as a fraction of the undithered delay.
	jitterFraction = 0.3
)

// Config holds the retry policy. Immutable per transport instance
// except MaxRetries, which the client may reconfigure at runtime.
type Config struct {
	MaxRetries           int
	InitialDelay         time.Duration
	MaxDelay             time.Duration
	BackoffMultiplier    float64
	RetryableStatusCodes []int
	RetryableErrors      []string
}

// DefaultConfig returns the policy used when the caller does not
// override it: 3 retries, 1s initial delay doubling up to 30s, and the
// standard transient status and connection codes.
func DefaultConfig() Config {
	return Config{
		MaxRetries:           DefaultMaxRetries,
		InitialDelay:         DefaultInitialDelay,
		MaxDelay:             DefaultMaxDelay,
		BackoffMultiplier:    DefaultBackoffMultiplier,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
		RetryableErrors: []string{
			"connection reset",
			"connection refused",
			"no such host",
			"network is unreachable",
			"i/o timeout",
		},
	}
}

// Delay computes the backoff delay for a zero-based retry attempt:
// min(InitialDelay × Multiplier^attempt, MaxDelay) plus uniform jitter
// in [0, 0.3×delay]. Jitter spreads simultaneous retries from many
// clients hitting the same outage.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if max := float64(c.MaxDelay); base > max {
		base = max
	}
	jitter := rand.Float64() * jitterFraction * base
	return time.Duration(base + jitter)
}
