package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps one expiring key per window.
type RedisCounter struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisCounter uses rdb for counters; keys are namespaced with prefix.
func NewRedisCounter(rdb redis.Cmdable, prefix string) *RedisCounter {
	return &RedisCounter{rdb: rdb, prefix: prefix}
}

var _ Counter = (*RedisCounter)(nil)

// Hit runs INCR and EXPIRE in one MULTI/EXEC so a key never outlives its window.
func (c *RedisCounter) Hit(ctx context.Context, key string, windowStart time.Time, window time.Duration) (int64, error) {
	k := c.prefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
