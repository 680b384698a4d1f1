package api

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/gin-gonic/gin"
)

type Limiter interface {
	Allow(ctx context.Context, key string, b cache.Bucket) (cache.Decision, error)
}

// RateLimit throttles requests per client IP with a token bucket. When the
// limiter itself fails the request is let through.
func RateLimit(limiter Limiter, prefix string, bucket cache.Bucket) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := prefix + ":" + c.FullPath() + ":" + c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), key, bucket)
		if err != nil {
			log.Printf("rate limiter unavailable: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(bucket.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if !decision.Allowed {
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			writeDetail(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
