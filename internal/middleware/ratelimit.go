package middleware

import (
	"net/http"
	"sync"
	"time"

	"parking-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter tracks a per-IP token bucket and its last activity for cleanup.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	rateClients   = make(map[string]*clientLimiter)
	rateClientsMu sync.Mutex
)

// RateLimit returns middleware that throttles each client IP to r requests per
// second with the given burst. Stale entries are evicted lazily.
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rateClientsMu.Lock()
		entry, ok := rateClients[ip]
		if !ok {
			entry = &clientLimiter{limiter: rate.NewLimiter(r, burst)}
			rateClients[ip] = entry
		}
		entry.lastSeen = time.Now()

		if len(rateClients) > 10_000 {
			for addr, cl := range rateClients {
				if time.Since(cl.lastSeen) > 10*time.Minute {
					delete(rateClients, addr)
				}
			}
		}
		rateClientsMu.Unlock()

		if !entry.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests"))
			return
		}

		c.Next()
	}
}
