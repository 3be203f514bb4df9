package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "task-tracker.com/task-tracker/internal/errors"
)

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count int
	start time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= m.window {
		m.evictExpired(now)
		b = &bucket{start: now}
		m.buckets[key] = b
	}

	if b.count >= m.limit {
		return false, nil
	}

	b.count++
	return true, nil
}

func (m *MemoryLimiter) evictExpired(now time.Time) {
	for key, b := range m.buckets {
		if now.Sub(b.start) >= m.window {
			delete(m.buckets, key)
		}
	}
}

// RateLimiter rejects requests once the client IP has used up its window.
// When the limiter itself fails the request is let through.
func RateLimiter(limiter Limiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, err := limiter.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("request_id", GetRequestID(c)).Msg("rate limiter unavailable")
				return next(c)
			}

			if !allowed {
				return apperrors.ErrRateLimited
			}

			return next(c)
		}
	}
}
