// Package retry provides bounded exponential-backoff execution for fallible
// remote operations.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff"
)

// Notify is called before each retry wait with the error that triggered it
// and the delay that will be observed.
type Notify = backoff.Notify

// Policy bounds a retried operation. Delays grow as BaseDelay * 2^(attempt-1)
// for 1-indexed attempts; after MaxRetries consecutive failures the last error
// is returned to the caller.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries uint64

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Jitter adds a uniform random delay in [0,1) seconds to each wait.
	// Used for network calls to avoid synchronized retry storms.
	Jitter bool
}

// Do executes op under the policy, waiting between attempts. notify may be nil.
// The context cancels any pending wait; op itself is responsible for honoring
// the context within a single attempt.
func Do(ctx context.Context, p Policy, notify Notify, op func() error) error {
	return backoff.RetryNotify(op, backoff.WithContext(p.backOff(), ctx), notify)
}

func (p Policy) backOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = time.Hour
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = exp
	if p.Jitter {
		b = &jitteredBackOff{delegate: b}
	}
	return backoff.WithMaxRetries(b, p.MaxRetries)
}

// jitteredBackOff adds a sub-second random offset on top of the exponential
// schedule. The offset is additive so the base delays stay exact.
type jitteredBackOff struct {
	delegate backoff.BackOff
}

func (j *jitteredBackOff) NextBackOff() time.Duration {
	next := j.delegate.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	return next + time.Duration(rand.Int63n(int64(time.Second)))
}

func (j *jitteredBackOff) Reset() { j.delegate.Reset() }
