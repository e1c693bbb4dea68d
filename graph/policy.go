package graph

import (
	"math/rand"
	"time"
)

// NodePolicy describes the execution behavior for a specific node: its
// timeout and retry strategy.
//
// Per-node timeouts and retries are a node-level concern, not enforced by
// the core runtime (spec.md §5): neither the scheduler nor the runner reads
// a NodePolicy.
type NodePolicy struct {
	// Timeout is the maximum execution time allowed for this node. Zero
	// means no per-node timeout.
	Timeout time.Duration

	// RetryPolicy specifies automatic retry behavior for transient
	// failures. Nil means no retries are attempted.
	RetryPolicy *RetryPolicy
}

// RetryPolicy defines automatic retry configuration for a node. Backoff is
// exponential with jitter, to avoid synchronized retry storms across
// concurrently failing nodes.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of execution attempts, including
	// the first. Must be >= 1; 1 means no retries.
	MaxAttempts int

	// BaseDelay is the base delay for exponential backoff between retries.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth of the backoff delay.
	MaxDelay time.Duration

	// Retryable decides whether a given error should be retried. Nil
	// means no error is considered retryable.
	Retryable func(error) bool
}

// computeBackoff returns the delay before the next retry attempt, computed
// as min(base*2^attempt, maxDelay) plus jitter in [0, base).
//
//	attempt 0: base   .. 2*base
//	attempt 1: 2*base .. 3*base
//	attempt 2: 4*base .. 5*base
//	...capped at maxDelay once the exponential term exceeds it.
func computeBackoff(attempt int, base, maxDelay time.Duration, rng *rand.Rand) time.Duration {
	exponential := base * (1 << attempt)
	if maxDelay > 0 && exponential > maxDelay {
		exponential = maxDelay
	}

	var jitter time.Duration
	if base > 0 {
		if rng != nil {
			jitter = time.Duration(rng.Int63n(int64(base)))
		} else {
			jitter = time.Duration(rand.Int63n(int64(base))) // #nosec G404 -- retry timing jitter, not security-sensitive
		}
	}

	return exponential + jitter
}

// Validate checks the RetryPolicy's configuration is internally consistent.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > 0 && rp.MaxDelay < rp.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}
