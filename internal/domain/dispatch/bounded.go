package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

var _ Channel = (*BoundedChannel)(nil)

// BoundedConfig holds construction parameters for a BoundedChannel.
type BoundedConfig struct {
	// MaxPerSecond caps how many individual sends are admitted per second.
	MaxPerSecond int

	// MaxConcurrentSends is a hard ceiling on sends in flight at once,
	// independent of the rate limiter. It protects transport-side resources
	// (sockets, provider connection quotas) however fast the limiter admits.
	MaxConcurrentSends int
}

// BoundedChannel dispatches through a provider with no batch endpoint: each
// recipient is one rate-limited scheduling unit, and a semaphore enforces
// the concurrency ceiling. The rate limiter and the semaphore guard
// different constraints (throughput vs. concurrent resource usage) and are
// accounted separately.
type BoundedChannel struct {
	sender  Sender
	limiter *Limiter
	sem     *semaphore.Weighted
}

// NewBoundedChannel creates a concurrency-bounded channel adapter. The
// adapter owns its limiter for its whole lifetime.
func NewBoundedChannel(sender Sender, cfg BoundedConfig) (*BoundedChannel, error) {
	if sender == nil {
		return nil, fmt.Errorf("bounded channel: sender is required")
	}
	if cfg.MaxConcurrentSends <= 0 {
		return nil, fmt.Errorf("bounded channel: max concurrent sends must be positive, got %d", cfg.MaxConcurrentSends)
	}

	limiter, err := NewLimiter(cfg.MaxPerSecond, time.Second)
	if err != nil {
		return nil, err
	}

	return &BoundedChannel{
		sender:  sender,
		limiter: limiter,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentSends)),
	}, nil
}

// Send submits one scheduling unit per recipient and returns once every
// unit has resolved. A semaphore slot is acquired before each unit is
// scheduled: when the ceiling is reached, scheduling blocks until an
// in-flight send completes and releases its slot, so no more than
// MaxConcurrentSends deliveries are ever pending at once.
func (c *BoundedChannel) Send(ctx context.Context, recipients []string, metadata []Metadata) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, len(recipients))

	var handles []<-chan struct{}
	for i := range recipients {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled while waiting for a slot. The remaining
			// recipients still get results so the cardinality invariant holds.
			results[i] = Result{
				Status:    StatusFailed,
				Recipient: recipients[i],
				Error:     err.Error(),
			}
			continue
		}

		idx := i
		handle := c.limiter.Schedule(func() {
			defer c.sem.Release(1)
			results[idx] = sendOne(ctx, c.sender, recipients[idx], metadataAt(metadata, idx))
		})
		handles = append(handles, handle)
	}

	for _, handle := range handles {
		<-handle
	}

	return results, nil
}

// Close stops the adapter's rate limiter. Callers must not invoke Send after
// Close.
func (c *BoundedChannel) Close() {
	c.limiter.Stop()
}
