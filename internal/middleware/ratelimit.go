package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/response"
)

// RateLimitConfig controls the fixed-window limiter.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// KeyPrefix separates counters for different route groups.
	KeyPrefix string
}

// DefaultAuthRateLimit throttles credential endpoints aggressively.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests:  10,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:auth",
	}
}

// DefaultAPIRateLimit applies to authenticated API traffic.
func DefaultAPIRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests:  300,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:api",
	}
}

// RateLimit enforces a per-client fixed-window request limit backed by
// Redis. Authenticated requests are keyed by user ID, anonymous ones by
// client IP. If Redis is unavailable the request is allowed through;
// availability wins over throttling here.
func RateLimit(client *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()
		if userID, ok := c.Get("user_id"); ok {
			identity = fmt.Sprintf("%v", userID)
		}

		window := time.Now().Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("%s:%s:%d", cfg.KeyPrefix, identity, window)

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.Error(err),
				zap.String("key_prefix", cfg.KeyPrefix),
			)
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(c.Request.Context(), key, cfg.Window)
		}

		remaining := int64(cfg.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Requests) {
			c.Writer.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			response.Error(c, 429, "RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}
