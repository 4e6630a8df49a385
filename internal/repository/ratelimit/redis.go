// Package ratelimit implements the per-user lifetime request ceiling.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
)

// DefaultCeiling is the lifetime number of searches allowed per user.
const DefaultCeiling = 5

// admitScript increments the counter only while it is below the ceiling.
// Returns 1 when admitted, 0 when denied.
const admitScript = `
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n >= tonumber(ARGV[1]) then return 0 end
redis.call('INCR', KEYS[1])
return 1
`

// refundScript decrements the counter without going below zero.
const refundScript = `
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n <= 0 then return 0 end
return redis.call('DECR', KEYS[1])
`

// store is the consumer interface for counter operations (ISP).
type store interface {
	EvalInt(ctx context.Context, script string, keys, args []string) (int64, error)
}

// RedisLimiter keeps counters at <prefix>ratelimit:<user_id>. Keys never expire.
type RedisLimiter struct {
	store   store
	prefix  string
	ceiling int64
}

// NewRedis creates a Redis-backed limiter. ceiling <= 0 selects DefaultCeiling.
func NewRedis(s store, keyPrefix string, ceiling int64) *RedisLimiter {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &RedisLimiter{store: s, prefix: keyPrefix + "ratelimit:", ceiling: ceiling}
}

// Admit atomically reserves one request for userID in a single round trip.
func (l *RedisLimiter) Admit(ctx context.Context, userID string) (bool, error) {
	key := l.prefix + userID
	n, err := l.store.EvalInt(ctx, admitScript, []string{key}, []string{strconv.FormatInt(l.ceiling, 10)})
	if err != nil {
		return false, fmt.Errorf("ratelimit admit %s: %w", key, err)
	}
	return n == 1, nil
}

// Refund releases a reservation taken by Admit.
func (l *RedisLimiter) Refund(ctx context.Context, userID string) error {
	key := l.prefix + userID
	if _, err := l.store.EvalInt(ctx, refundScript, []string{key}, nil); err != nil {
		return fmt.Errorf("ratelimit refund %s: %w", key, err)
	}
	return nil
}
