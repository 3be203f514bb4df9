package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// RedisLimiter shares request windows between instances through INCR and
// EXPIRE on one key per client and window.
type RedisLimiter struct {
	client rueidis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client rueidis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := r.windowKey(key)

	results := r.client.DoMulti(
		ctx,
		r.client.B().Incr().Key(windowKey).Build(),
		r.client.B().Expire().Key(windowKey).Seconds(int64(r.window/time.Second)+1).Build(),
	)

	count, err := results[0].AsInt64()
	if err != nil {
		return false, fmt.Errorf("increment rate limit counter: %w", err)
	}
	if err := results[1].Error(); err != nil {
		return false, fmt.Errorf("expire rate limit counter: %w", err)
	}

	return count <= int64(r.limit), nil
}

func (r *RedisLimiter) windowKey(key string) string {
	window := r.now().UnixNano() / int64(r.window)
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, window)
}
