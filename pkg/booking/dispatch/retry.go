package dispatch

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds automatic retries of idempotent operations.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Jitter is the randomization factor; zero keeps the schedule exact.
	Jitter float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
	}
}

func (p RetryPolicy) attempts() uint {
	if p.MaxAttempts < 1 {
		return 1
	}
	return uint(p.MaxAttempts)
}

// BackOff builds a fresh exponential schedule for one dispatch.
func (p RetryPolicy) BackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.Reset()
	return b
}

// Schedule lists the waits between attempts, for inspection and tests.
func (p RetryPolicy) Schedule() []time.Duration {
	b := p.BackOff()
	waits := make([]time.Duration, 0, p.attempts()-1)
	for i := uint(1); i < p.attempts(); i++ {
		waits = append(waits, b.NextBackOff())
	}
	return waits
}
