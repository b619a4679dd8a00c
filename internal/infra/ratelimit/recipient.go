package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"pushfan/internal/domain/dispatch"

	"github.com/redis/go-redis/v9"
)

var _ dispatch.RecipientRateLimiter = (*RedisRecipientLimiter)(nil)

// RedisRecipientLimiter caps how many notifications any single recipient may
// receive per window, using Redis sorted sets. It uses a sliding window:
// each delivery is a member scored by its timestamp. The cap is shared
// across all channels, since it protects the recipient, not the transport.
type RedisRecipientLimiter struct {
	client    *redis.Client
	maxPerWin int
	window    time.Duration
}

// NewRedisRecipientLimiter creates a new Redis-based per-recipient rate limiter.
func NewRedisRecipientLimiter(redisAddr, password string, db int, maxPerHour int) *RedisRecipientLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})

	return &RedisRecipientLimiter{
		client:    client,
		maxPerWin: maxPerHour,
		window:    time.Hour,
	}
}

// Allow reports whether another notification may be sent to the recipient,
// recording the delivery when it is allowed.
func (r *RedisRecipientLimiter) Allow(ctx context.Context, recipient string) (bool, error) {
	key := "pushfan:ratelimit:" + recipient
	now := time.Now()
	windowStart := now.Add(-r.window)

	pipe := r.client.Pipeline()

	// Drop entries that have aged out of the sliding window, then count
	// what remains.
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("checking recipient rate limit: %w", err)
	}

	if countCmd.Val() >= int64(r.maxPerWin) {
		return false, nil
	}

	// Unique member so concurrent fan-outs to the same recipient never
	// collapse into one entry.
	randBytes := make([]byte, 4)
	_, _ = rand.Read(randBytes)
	member := redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%s", now.UnixNano(), hex.EncodeToString(randBytes)),
	}

	record := r.client.Pipeline()
	record.ZAdd(ctx, key, member)
	record.Expire(ctx, key, r.window+time.Minute) // TTL slightly longer than window for cleanup

	if _, err := record.Exec(ctx); err != nil {
		return false, fmt.Errorf("recording rate limit entry: %w", err)
	}

	return true, nil
}

// Close closes the Redis connection.
func (r *RedisRecipientLimiter) Close() error {
	return r.client.Close()
}
