package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/parchment-labs/docworker/pkg/metrics"
	"golang.org/x/time/rate"
)

// getLimiter returns (and lazily creates) a token-bucket limiter for the given key
// in limiterStore (map[string]*rate.Limiter).
// LoadOrStore makes the first-seen-key race safe: if two goroutines race to
// create the same key's limiter, only one of the two limiters is kept, and
// both goroutines observe the same one.
func getLimiter(limiterStore *sync.Map, key string, rps float64, burst int) *rate.Limiter {
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	actual, _ := limiterStore.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit
// on the invocation route. Key selection: the caller's IP, since invocations carry no
// authenticated subject (the worker trusts its invoker, not an end user).
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	// per-key limiter store (simple in-memory token-bucket), one per middleware
	var limiterStore sync.Map
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		key := "ip:" + ip

		lim := getLimiter(&limiterStore, key, rps, burst)
		if !lim.Allow() {
			// set common rate limit headers (informational)
			c.Header("Retry-After", "1")
			// record metric and reject
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		// record allowed
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
