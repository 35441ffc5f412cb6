// Package ratelimit throttles credential endpoints per route and client IP using fixed windows in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/platform/response"
)

// Counter increments a windowed counter and returns the new value.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter allows at most Max requests per route and IP in each Window.
type Limiter struct {
	counter Counter
	prefix  string
	max     int64
	window  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// New returns a Limiter. max <= 0 disables limiting.
func New(counter Counter, prefix string, max int, window time.Duration, logger *zap.Logger) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{counter: counter, prefix: prefix, max: int64(max), window: window, now: time.Now, logger: logger}
}

// Allow records one hit for ip on route and reports whether it is within the limit, plus
// the time until the current window ends. Each route has its own budget. Counter errors
// fail open.
func (l *Limiter) Allow(ctx context.Context, route, ip string) (bool, time.Duration) {
	if l == nil || l.counter == nil || l.max <= 0 || ip == "" {
		return true, 0
	}
	now := l.now()
	windowStart := now.Truncate(l.window)
	key := fmt.Sprintf("%s:%s:%s:%d", l.prefix, route, ip, windowStart.Unix())
	n, err := l.counter.Incr(ctx, key, l.window+time.Second)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
		return true, 0
	}
	return n <= l.max, windowStart.Add(l.window).Sub(now)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header. The
// bucket is the matched route pattern, so one Limiter can guard several endpoints.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ok, retry := l.Allow(c.Request.Context(), route, c.ClientIP())
		if ok {
			c.Next()
			return
		}
		secs := int(retry.Seconds())
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		response.TooManyRequests(c)
	}
}
