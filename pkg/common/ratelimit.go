package common

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed interval between successive upstream calls. It is the
// serialization point that keeps the collector inside the vendor's pacing
// limits: every Wait blocks for a full interval, including the first one, so a
// fresh Pacer also provides the initial warm-up delay.
type Pacer struct {
	limiter *rate.Limiter
	mu      sync.RWMutex // Protects concurrent access to the limiter
}

// NewPacer creates a Pacer that releases one call per interval. An interval of
// zero disables pacing entirely.
func NewPacer(interval time.Duration) *Pacer {
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// Drain the initial token so the first Wait blocks like every other.
	limiter.Allow()
	return &Pacer{limiter: limiter}
}

// Wait blocks until the pacing interval has elapsed or the context is
// canceled. It returns an error only on cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.limiter.Wait(ctx)
}

// UpdateInterval dynamically adjusts the pacing interval. This allows adapting
// to changing vendor quotas at runtime.
func (p *Pacer) UpdateInterval(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.SetLimit(rate.Every(interval))
}
