package throttle

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Laisky/laisky-forum/library/web"
)

// maxTrackedIPs bounds the per-ip limiter map, it is reset when full
const maxTrackedIPs = 10000

// IPLimiter is a local token bucket per client ip
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewIPLimiter allows rps requests per second with bursts of burst per ip
func NewIPLimiter(rps float64, burst int) *IPLimiter {
	return &IPLimiter{
		limiters: map[string]*rate.Limiter{},
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether ip may send one more request now
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= maxTrackedIPs {
			l.limiters = map[string]*rate.Limiter{}
		}

		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

// Middleware rejects requests over the limit with 429
func (l *IPLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.Allow(ctx.ClientIP()) {
			web.Abort(ctx, &web.ClientError{
				Code:    http.StatusTooManyRequests,
				Message: "too many requests",
			})
			return
		}

		ctx.Next()
	}
}
