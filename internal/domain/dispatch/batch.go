package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ Channel = (*BatchChannel)(nil)

// BatchConfig holds construction parameters for a BatchChannel.
type BatchConfig struct {
	// ChunkSize is the provider's maximum batch capacity (e.g., 500 for FCM).
	ChunkSize int

	// MaxPerSecond caps how many chunk requests are issued per second.
	// The provider expresses its limit in requests/sec, not messages/sec.
	MaxPerSecond int
}

// BatchChannel dispatches through a batch-capable provider. Recipients and
// their aligned metadata are partitioned into fixed-size chunks; each chunk
// is one rate-limited scheduling unit, and within a chunk every recipient is
// sent concurrently with per-recipient error isolation.
type BatchChannel struct {
	sender    Sender
	limiter   *Limiter
	chunkSize int
}

// NewBatchChannel creates a batch-oriented channel adapter. The adapter owns
// its limiter for its whole lifetime.
func NewBatchChannel(sender Sender, cfg BatchConfig) (*BatchChannel, error) {
	if sender == nil {
		return nil, fmt.Errorf("batch channel: sender is required")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("batch channel: chunk size must be positive, got %d", cfg.ChunkSize)
	}

	limiter, err := NewLimiter(cfg.MaxPerSecond, time.Second)
	if err != nil {
		return nil, err
	}

	return &BatchChannel{
		sender:    sender,
		limiter:   limiter,
		chunkSize: cfg.ChunkSize,
	}, nil
}

// Send partitions recipients into chunks and waits for every chunk to
// complete before returning the aggregated results. Results are written into
// a pre-sized slice indexed by recipient position, so concurrent completions
// can never lose or duplicate an entry.
func (c *BatchChannel) Send(ctx context.Context, recipients []string, metadata []Metadata) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, len(recipients))

	var handles []<-chan struct{}
	for start := 0; start < len(recipients); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(recipients) {
			end = len(recipients)
		}

		lo, hi := start, end
		handle := c.limiter.Schedule(func() {
			c.sendChunk(ctx, recipients, metadata, results, lo, hi)
		})
		handles = append(handles, handle)
	}

	for _, handle := range handles {
		<-handle
	}

	return results, nil
}

// sendChunk dispatches recipients[lo:hi] concurrently. Chunk size is itself
// the concurrency bound, so no further throttling is applied here.
func (c *BatchChannel) sendChunk(ctx context.Context, recipients []string, metadata []Metadata, results []Result, lo, hi int) {
	var wg sync.WaitGroup
	for i := lo; i < hi; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = sendOne(ctx, c.sender, recipients[i], metadataAt(metadata, i))
		}(i)
	}
	wg.Wait()
}

// Close stops the adapter's rate limiter. Callers must not invoke Send after
// Close.
func (c *BatchChannel) Close() {
	c.limiter.Stop()
}
