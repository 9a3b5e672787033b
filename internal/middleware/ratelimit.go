// File: internal/middleware/ratelimit.go
package middleware

import (
	"time"

	"desirius_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per key (the client IP by default) with a token bucket.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *cache.Cache
	logger  *zap.Logger
}

// NewRateLimiter allows perMinute requests per IP per minute. Idle buckets are dropped
// after ten minutes; cleanupInterval 0 disables the background janitor.
func NewRateLimiter(perMinute int, cleanupInterval time.Duration, logger *zap.Logger) *RateLimiter {
	return NewWindowRateLimiter(perMinute, time.Minute, cleanupInterval, logger)
}

// NewWindowRateLimiter allows n requests per key per window, refilling evenly. Buckets idle
// for longer than the window (and at least ten minutes) are dropped.
func NewWindowRateLimiter(n int, window time.Duration, cleanupInterval time.Duration, logger *zap.Logger) *RateLimiter {
	if n <= 0 || window <= 0 {
		return &RateLimiter{logger: logger}
	}
	idle := 10 * time.Minute
	if window > idle {
		idle = window
	}
	return &RateLimiter{
		limit:   rate.Every(window / time.Duration(n)),
		burst:   n,
		buckets: cache.New(idle, cleanupInterval),
		logger:  logger,
	}
}

// Middleware rejects requests over the limit with 429, bucketed by client IP. A limiter
// built with a non-positive rate lets everything through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return rl.KeyedMiddleware(nil)
}

// KeyedMiddleware is Middleware with buckets chosen by key. A nil key, or an empty result,
// falls back to the client IP.
func (rl *RateLimiter) KeyedMiddleware(key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.buckets == nil {
			c.Next()
			return
		}
		k := ""
		if key != nil {
			k = key(c)
		}
		if k == "" {
			k = c.ClientIP()
		}
		if !rl.bucket(k).Allow() {
			RequestLogger(c, rl.logger).Warn("Rate limit exceeded",
				zap.String("key", k), zap.String("path", c.Request.URL.Path))
			common.RespondWithError(c, common.ErrTooManyRequests.WithDetails("Muitas tentativas. Tente novamente mais tarde"))
			return
		}
		c.Next()
	}
}

// ProfileRateKey buckets by the signed-in profile. It must run after RequireSession.
func ProfileRateKey(c *gin.Context) string {
	if p, ok := CurrentProfile(c); ok {
		return "profile:" + p.ID
	}
	return ""
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		rl.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	if err := rl.buckets.Add(key, l, cache.DefaultExpiration); err != nil {
		// lost a race with another request for the same key
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}
