package graph

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestRetryPolicyValidate(t *testing.T) {
	cases := []struct {
		name    string
		policy  RetryPolicy
		wantErr bool
	}{
		{"zero attempts rejected", RetryPolicy{MaxAttempts: 0}, true},
		{"single attempt ok", RetryPolicy{MaxAttempts: 1}, false},
		{"max less than base rejected", RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 500 * time.Millisecond}, true},
		{"sane policy ok", RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.wantErr && !errors.Is(err, ErrInvalidRetryPolicy) {
				t.Errorf("expected ErrInvalidRetryPolicy, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestComputeBackoffGrowsExponentiallyAndCaps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := 100 * time.Millisecond
	maxDelay := 500 * time.Millisecond

	d0 := computeBackoff(0, base, maxDelay, rng)
	if d0 < base || d0 >= 2*base {
		t.Errorf("attempt 0 expected in [base, 2*base), got %v", d0)
	}

	d3 := computeBackoff(3, base, maxDelay, rng)
	if d3 < maxDelay || d3 >= maxDelay+base {
		t.Errorf("attempt 3 expected capped near maxDelay, got %v", d3)
	}
}

func TestComputeBackoffZeroBaseHasNoJitter(t *testing.T) {
	d := computeBackoff(0, 0, 0, nil)
	if d != 0 {
		t.Errorf("expected zero delay with zero base, got %v", d)
	}
}
