package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffShape(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 3, BaseDelay: 5 * time.Second}
	b := p.backOff()

	assert.Equal(t, 5*time.Second, b.NextBackOff())
	assert.Equal(t, 10*time.Second, b.NextBackOff())
	assert.Equal(t, 20*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff(), "budget exhausted after MaxRetries waits")
}

func TestBackoffShapeWithJitter(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 3, BaseDelay: 5 * time.Second, Jitter: true}
	b := p.backOff()

	for _, base := range []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second} {
		next := b.NextBackOff()
		assert.GreaterOrEqual(t, next, base)
		assert.Less(t, next, base+time.Second)
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var attempts int
	err := Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond}, nil, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoReturnsLastErrorOnExhaustion(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("still down")

	var attempts int
	var notified int
	notify := func(error, time.Duration) { notified++ }

	err := Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond}, notify, func() error {
		attempts++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, attempts, "initial attempt plus MaxRetries retries")
	assert.Equal(t, 2, notified, "notify fires before every retry wait")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var attempts int
	err := Do(ctx, Policy{MaxRetries: 5, BaseDelay: time.Hour}, nil, func() error {
		attempts++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "no retries once the context is canceled")
}
