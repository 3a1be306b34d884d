package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerBlocksBeforeFirstCall(t *testing.T) {
	t.Parallel()

	interval := 50 * time.Millisecond
	p := NewPacer(interval)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, interval-5*time.Millisecond,
		"the first wait is the warm-up delay, not a free pass")
}

func TestPacerZeroIntervalDoesNotBlock(t *testing.T) {
	t.Parallel()

	p := NewPacer(0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPacerHonorsCancellation(t *testing.T) {
	t.Parallel()

	p := NewPacer(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	require.Error(t, err)
}
