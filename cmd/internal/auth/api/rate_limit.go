package authapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimiter is a fixed-window counter keyed per client, backed by Redis.
//
// A nil Redis client disables limiting entirely (db-less dev mode). Redis
// outages fail open: losing throttling is better than losing logins.
type rateLimiter struct {
	redis  *redis.Client
	max    int
	window time.Duration
}

func newRateLimiter(redisClient *redis.Client, maxHits int, window time.Duration) *rateLimiter {
	return &rateLimiter{redis: redisClient, max: maxHits, window: window}
}

func (l *rateLimiter) key(client string, now time.Time) string {
	bucket := now.UTC().Unix() / int64(l.window/time.Second)
	return "balcao:rl:auth:" + client + ":" + strconv.FormatInt(bucket, 10)
}

// Allow reports whether this hit fits in the client's current window and
// how long to wait when it does not.
func (l *rateLimiter) Allow(ctx context.Context, client string, now time.Time) (bool, time.Duration, error) {
	if l == nil || l.redis == nil || client == "" {
		return true, 0, nil
	}

	key := l.key(client, now)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return true, 0, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	if count > int64(l.max) {
		retry := l.window - time.Duration(now.UTC().Unix()%int64(l.window/time.Second))*time.Second
		return false, retry, nil
	}
	return true, 0, nil
}
