package debate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig defines the fixed window for player messages
type RateLimitConfig struct {
	MaxMessages int
	Window      time.Duration
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessages: 5,
		Window:      10 * time.Second,
	}
}

// RateLimiter counts actions per player in a fixed Redis window
type RateLimiter struct {
	rdb    redis.Cmdable
	config RateLimitConfig
}

// NewRateLimiter creates a new RateLimiter instance
func NewRateLimiter(rdb redis.Cmdable, config RateLimitConfig) *RateLimiter {
	if config.MaxMessages <= 0 || config.Window <= 0 {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{rdb: rdb, config: config}
}

func rateKey(roomID, playerID string) string {
	return fmt.Sprintf("rate:message:%s:%s", roomID, playerID)
}

// Allow records one action and reports whether it fits in the current window
func (rl *RateLimiter) Allow(ctx context.Context, roomID, playerID string) (bool, error) {
	if rl == nil || rl.rdb == nil {
		return false, errors.New("Redis client not available")
	}

	key := rateKey(roomID, playerID)

	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	// Set expiration if first time
	if count == 1 {
		if err := rl.rdb.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return false, err
		}
	}

	return count <= int64(rl.config.MaxMessages), nil
}
