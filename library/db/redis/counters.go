package redis

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// Incr increases the window counter at key.
// The expiration is only set when the counter has none,
// so the window starts with the first hit.
func (db *DB) Incr(ctx context.Context, key string, period time.Duration) (int64, error) {
	var incr *redis.IntCmd
	if _, err := db.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, period)
		return nil
	}); err != nil {
		return 0, errors.Wrapf(err, "incr %q", key)
	}

	return incr.Val(), nil
}

// Count returns the current value of the window counter, 0 when absent
func (db *DB) Count(ctx context.Context, key string) (int64, error) {
	n, err := db.rdb.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, errors.Wrapf(err, "get %q", key)
	}

	return n, nil
}
