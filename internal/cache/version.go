// Package cache tracks a namespace version for availability responses.
// Cached availability answers embed the current version in their key;
// bumping the version after a booking or cancellation invalidates every
// cached answer at once without scanning for keys.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKey = "avail:ns"

// Version returns the current availability namespace version. A missing
// key or a Redis error reads as version "0" so callers always get a
// usable value.
func Version(ctx context.Context, rdb *redis.Client) string {
	if rdb == nil {
		return "0"
	}
	cctx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	v, err := rdb.Get(cctx, versionKey).Result()
	if err != nil {
		return "0"
	}
	return v
}

// Bump increments the namespace version, invalidating all cached
// availability responses. Errors are swallowed: a failed bump only means
// a stale answer may be served until its TTL expires.
func Bump(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_ = rdb.Incr(cctx, versionKey).Err()
}
