package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
)

// RateLimit allows limit requests per client IP and route in each window.
// Without a Redis cache every request passes.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		cache := services.Limits
		if cache == nil || limit <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		key := c.FullPath() + ":" + c.ClientIP()
		count, err := cache.IncrWithExpire(ctx, "ratelimit", key, window)
		if err != nil {
			// fail open
			utils.LogWarn("Rate limit check failed for %s: %v", key, err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			if ttl, err := cache.TTL(ctx, "ratelimit", key); err == nil && ttl > 0 {
				c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			}
			utils.LogWarn("Rate limit exceeded for %s", key)
			abort(c, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}
