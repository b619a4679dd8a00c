package dispatch

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a token-bucket throttle for scheduled units of work.
// Up to maxPerInterval units are admitted per interval; excess units wait
// in a FIFO queue and are released on the next refill. Each Limiter is
// owned by exactly one channel adapter and is never shared.
//
// Admission is purely rate-based: a unit's own failure is the caller's
// concern, not the limiter's.
type Limiter struct {
	mu     sync.Mutex
	tokens int
	queue  []func()

	maxPerInterval int
	interval       time.Duration

	stopped  bool
	done     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a Limiter admitting at most maxPerInterval units per
// interval. Invalid parameters are a configuration error, never clamped.
func NewLimiter(maxPerInterval int, interval time.Duration) (*Limiter, error) {
	if maxPerInterval <= 0 {
		return nil, fmt.Errorf("rate limiter: maxPerInterval must be positive, got %d", maxPerInterval)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("rate limiter: interval must be positive, got %s", interval)
	}

	l := &Limiter{
		tokens:         maxPerInterval,
		maxPerInterval: maxPerInterval,
		interval:       interval,
		done:           make(chan struct{}),
	}

	go l.refillLoop()

	return l, nil
}

// Schedule submits fn for execution under the rate policy. The returned
// channel is closed once fn has been admitted and has returned, whatever
// its outcome. If no token is available, fn waits in FIFO order for the
// next refill.
func (l *Limiter) Schedule(fn func()) <-chan struct{} {
	handle := make(chan struct{})
	run := func() {
		go func() {
			defer close(handle)
			fn()
		}()
	}

	l.mu.Lock()
	if l.stopped {
		// No policy to enforce once torn down; run rather than strand the caller.
		l.mu.Unlock()
		run()
		return handle
	}
	if l.tokens > 0 {
		l.tokens--
		l.mu.Unlock()
		run()
		return handle
	}
	l.queue = append(l.queue, run)
	l.mu.Unlock()

	return handle
}

// Stop tears the limiter down: the refill goroutine exits and its ticker is
// released. Units still queued at that point are released immediately so no
// Schedule handle hangs forever. Stop is idempotent.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)

		l.mu.Lock()
		l.stopped = true
		pending := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, run := range pending {
			run()
		}
	})
}

// refillLoop resets the token count every interval and drains queued units
// in FIFO order up to the refreshed count. It exits on Stop.
func (l *Limiter) refillLoop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.refill()
		}
	}
}

func (l *Limiter) refill() {
	l.mu.Lock()
	l.tokens = l.maxPerInterval

	n := len(l.queue)
	if n > l.tokens {
		n = l.tokens
	}
	released := l.queue[:n]
	l.queue = l.queue[n:]
	l.tokens -= n
	l.mu.Unlock()

	for _, run := range released {
		run()
	}
}
