package throttle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

type memCounter struct {
	mu      sync.Mutex
	vals    map[string]int64
	periods map[string]time.Duration
	err     error
}

func newMemCounter() *memCounter {
	return &memCounter{vals: map[string]int64{}, periods: map[string]time.Duration{}}
}

func (c *memCounter) Incr(_ context.Context, key string, period time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.vals[key]++
	if c.vals[key] == 1 {
		c.periods[key] = period
	}
	return c.vals[key], nil
}

func (c *memCounter) Count(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.vals[key], nil
}

func TestNewLoginLimiterDefaults(t *testing.T) {
	_, err := NewLoginLimiter(nil, Window{}, Window{})
	require.Error(t, err)

	l, err := NewLoginLimiter(newMemCounter(), Window{}, Window{Max: 3, Period: time.Minute})
	require.NoError(t, err)
	require.Equal(t, DefaultTotalWindow, l.Total)
	require.Equal(t, Window{Max: 3, Period: time.Minute}, l.IP)
}

func TestLoginLimiterWindows(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	l, err := NewLoginLimiter(counter, Window{Max: 3, Period: time.Minute}, Window{Max: 2, Period: 5 * time.Minute})
	require.NoError(t, err)

	exceeded, err := l.IPExceeded(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, exceeded)

	l.touch("10.0.0.1")
	l.touch("10.0.0.1")

	exceeded, err = l.IPExceeded(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, exceeded)

	exceeded, err = l.IPExceeded(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.False(t, exceeded)

	exceeded, err = l.TotalExceeded(ctx)
	require.NoError(t, err)
	require.False(t, exceeded)

	l.touch("10.0.0.2")
	exceeded, err = l.TotalExceeded(ctx)
	require.NoError(t, err)
	require.True(t, exceeded)

	require.Equal(t, 5*time.Minute, counter.periods[ipKey("10.0.0.1")])
	require.Equal(t, time.Minute, counter.periods[totalKey()])
}

func TestLoginLimiterTouchIsAsync(t *testing.T) {
	counter := newMemCounter()
	l, err := NewLoginLimiter(counter, Window{}, Window{})
	require.NoError(t, err)

	l.Touch("10.0.0.1")
	require.Eventually(t, func() bool {
		n, _ := counter.Count(context.Background(), totalKey())
		return n == 1
	}, time.Second, 10*time.Millisecond)
}

func TestLoginLimiterCounterError(t *testing.T) {
	counter := newMemCounter()
	counter.err = errors.New("redis down")
	l, err := NewLoginLimiter(counter, Window{}, Window{})
	require.NoError(t, err)

	_, err = l.TotalExceeded(context.Background())
	require.ErrorContains(t, err, "redis down")

	// failures while touching are only logged
	l.touch("10.0.0.1")
}
