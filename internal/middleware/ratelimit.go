package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/estatecrm/internal/cache"
	"github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/logger"
	"github.com/charlesng35/estatecrm/pkg/metrics"
	"github.com/charlesng35/estatecrm/pkg/response"
)

// RateLimit caps requests per (caller, route) within a fixed window. Authenticated
// callers are keyed by user ID, anonymous ones by client IP. When the counter
// store fails the request is let through.
func RateLimit(store cache.Counter, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		caller := c.GetString(CtxUserIDKey)
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}
		key := "ratelimit:" + caller + "|" + c.Request.Method + " " + c.FullPath()

		count, resetIn, err := store.IncrementWithTTL(c.Request.Context(), key, window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("counter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > int64(maxRequests) {
			metrics.RateLimited.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())+1))
			response.Error(c, errors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
