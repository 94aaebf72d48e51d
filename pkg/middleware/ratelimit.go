package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"salon/internal/metrics"
	mem "salon/pkg/memcache"
	"salon/pkg/utils"
)

// RateLimitMiddleware throttles a route per client IP. name labels the
// rejection metric.
func RateLimitMiddleware(name string, store mem.LimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !store.Get(name + "|" + c.ClientIP()).Allow() {
			metrics.RateLimited.WithLabelValues(name).Inc()
			c.Header("Retry-After", "60")
			utils.RespondError(c, http.StatusTooManyRequests, "Too many attempts, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
