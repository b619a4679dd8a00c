package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter_RejectsInvalidConfig(t *testing.T) {
	_, err := NewLimiter(0, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxPerInterval")

	_, err = NewLimiter(-5, time.Second)
	require.Error(t, err)

	_, err = NewLimiter(3, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
}

func TestLimiter_RunsImmediatelyWithinBudget(t *testing.T) {
	limiter, err := NewLimiter(5, time.Minute)
	require.NoError(t, err)
	defer limiter.Stop()

	var ran atomic.Int32
	var handles []<-chan struct{}
	for i := 0; i < 5; i++ {
		handles = append(handles, limiter.Schedule(func() {
			ran.Add(1)
		}))
	}

	for _, h := range handles {
		select {
		case <-h:
		case <-time.After(time.Second):
			t.Fatal("unit within token budget did not complete promptly")
		}
	}
	assert.Equal(t, int32(5), ran.Load())
}

func TestLimiter_ThrottlesBeyondBudget(t *testing.T) {
	const (
		max      = 2
		interval = 100 * time.Millisecond
		units    = 6
	)

	limiter, err := NewLimiter(max, interval)
	require.NoError(t, err)
	defer limiter.Stop()

	var mu sync.Mutex
	var starts []time.Time

	begin := time.Now()
	var handles []<-chan struct{}
	for i := 0; i < units; i++ {
		handles = append(handles, limiter.Schedule(func() {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		}))
	}

	// Only the initial token budget may start before the first refill.
	time.Sleep(interval / 2)
	mu.Lock()
	early := len(starts)
	mu.Unlock()
	assert.LessOrEqual(t, early, max, "more units started than tokens available")

	// All units eventually complete.
	for _, h := range handles {
		select {
		case <-h:
		case <-time.After(5 * time.Second):
			t.Fatal("scheduled unit never completed")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, units)

	// 6 units at 2 per refill need at least two refill cycles after the
	// initial burst.
	elapsed := time.Since(begin)
	assert.GreaterOrEqual(t, elapsed, 2*interval-interval/4,
		"units were admitted faster than the configured rate")
}

func TestLimiter_QueueIsFIFO(t *testing.T) {
	limiter, err := NewLimiter(1, 20*time.Millisecond)
	require.NoError(t, err)
	defer limiter.Stop()

	var mu sync.Mutex
	var order []int

	var handles []<-chan struct{}
	for i := 0; i < 5; i++ {
		i := i
		handles = append(handles, limiter.Schedule(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	for _, h := range handles {
		<-h
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLimiter_UnitFailureDoesNotAffectAdmission(t *testing.T) {
	limiter, err := NewLimiter(2, 20*time.Millisecond)
	require.NoError(t, err)
	defer limiter.Stop()

	// A unit whose work errors internally is still just a completed unit;
	// subsequent units are admitted as usual.
	var ran atomic.Int32
	h1 := limiter.Schedule(func() {
		ran.Add(1)
		// simulated transport failure swallowed by the unit itself
	})
	h2 := limiter.Schedule(func() {
		ran.Add(1)
	})
	h3 := limiter.Schedule(func() {
		ran.Add(1)
	})

	for _, h := range []<-chan struct{}{h1, h2, h3} {
		select {
		case <-h:
		case <-time.After(time.Second):
			t.Fatal("unit did not complete")
		}
	}
	assert.Equal(t, int32(3), ran.Load())
}

func TestLimiter_StopReleasesQueuedUnits(t *testing.T) {
	limiter, err := NewLimiter(1, time.Hour)
	require.NoError(t, err)

	var ran atomic.Int32
	h1 := limiter.Schedule(func() { ran.Add(1) })
	h2 := limiter.Schedule(func() { ran.Add(1) }) // queued behind a far-off refill

	<-h1
	limiter.Stop()

	select {
	case <-h2:
	case <-time.After(time.Second):
		t.Fatal("queued unit was stranded by Stop")
	}
	assert.Equal(t, int32(2), ran.Load())

	// Stop is idempotent, and scheduling after Stop does not strand callers.
	limiter.Stop()
	h3 := limiter.Schedule(func() { ran.Add(1) })
	select {
	case <-h3:
	case <-time.After(time.Second):
		t.Fatal("unit scheduled after Stop never completed")
	}
	assert.Equal(t, int32(3), ran.Load())
}
