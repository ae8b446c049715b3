package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers delivered event ids so broker redeliveries are handled once.
type Deduper interface {
	AcquireOnce(ctx context.Context, eventID string) bool
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce returns true the first time eventID is seen. When redis is
// unreachable it returns true so notifications keep flowing.
func (d *RedisDeduper) AcquireOnce(ctx context.Context, eventID string) bool {
	ok, err := d.rdb.SetNX(ctx, "dedup:notification:"+eventID, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
