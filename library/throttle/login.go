// Package throttle implements the login rate limits and a local per-ip request limiter.
//
// Two fixed windows are tracked in redis:
//
//   - total: every failed login on the site. Exceeding it is a soft limit,
//     the client must solve a captcha.
//   - ip: failed logins from one client address. Exceeding it is a hard limit,
//     the client has to wait for the window to expire.
package throttle

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-forum/library/db/redis"
	"github.com/Laisky/laisky-forum/library/log"
)

const touchTimeout = 5 * time.Second

// Counter is the window counter storage
type Counter interface {
	Incr(ctx context.Context, key string, period time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
}

// Window is a fixed window limit
type Window struct {
	Max    int64
	Period time.Duration
}

// LoginLimiter tracks failed login attempts
type LoginLimiter struct {
	counter Counter
	Total   Window
	IP      Window
}

// DefaultTotalWindow allows 60 failed logins per minute site wide
var DefaultTotalWindow = Window{Max: 60, Period: 60 * time.Second}

// DefaultIPWindow allows 5 failed logins per 5 minutes from one address
var DefaultIPWindow = Window{Max: 5, Period: 300 * time.Second}

// NewLoginLimiter creates a LoginLimiter.
// Zero windows are replaced by the defaults.
func NewLoginLimiter(counter Counter, total, ip Window) (*LoginLimiter, error) {
	if counter == nil {
		return nil, errors.New("counter is nil")
	}

	if total.Max <= 0 || total.Period <= 0 {
		total = DefaultTotalWindow
	}
	if ip.Max <= 0 || ip.Period <= 0 {
		ip = DefaultIPWindow
	}

	return &LoginLimiter{
		counter: counter,
		Total:   total,
		IP:      ip,
	}, nil
}

func totalKey() string {
	return redis.RateLimitKey("login", "total")
}

func ipKey(ip string) string {
	return redis.RateLimitKey("login", "ip", ip)
}

// TotalExceeded reports whether the site wide limit is reached
func (l *LoginLimiter) TotalExceeded(ctx context.Context) (bool, error) {
	n, err := l.counter.Count(ctx, totalKey())
	if err != nil {
		return false, errors.Wrap(err, "count total logins")
	}

	return n >= l.Total.Max, nil
}

// IPExceeded reports whether the limit for ip is reached
func (l *LoginLimiter) IPExceeded(ctx context.Context, ip string) (bool, error) {
	n, err := l.counter.Count(ctx, ipKey(ip))
	if err != nil {
		return false, errors.Wrap(err, "count ip logins")
	}

	return n >= l.IP.Max, nil
}

// Touch records one failed attempt from ip in both windows.
// It returns immediately, counters are updated in background.
func (l *LoginLimiter) Touch(ip string) {
	go l.touch(ip)
}

func (l *LoginLimiter) touch(ip string) {
	ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
	defer cancel()

	if _, err := l.counter.Incr(ctx, ipKey(ip), l.IP.Period); err != nil {
		log.Logger.Warn("update ip login limit", zap.Error(err), zap.String("ip", ip))
	}
	if _, err := l.counter.Incr(ctx, totalKey(), l.Total.Period); err != nil {
		log.Logger.Warn("update total login limit", zap.Error(err))
	}
}
