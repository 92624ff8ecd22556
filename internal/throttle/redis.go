package throttle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a Redis-backed Limiter whose state survives restarts and
// is shared across replicas.
type RedisLimiter struct {
	client    *redis.Client
	prefix    string
	cooldown  time.Duration
	window    time.Duration
	windowMax int
}

// NewRedisLimiter constructs a limiter keyed under the given prefix.
func NewRedisLimiter(client *redis.Client, prefix string, cooldown, window time.Duration, windowMax int) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		prefix:    prefix,
		cooldown:  cooldown,
		window:    window,
		windowMax: windowMax,
	}
}

// Reserve implements Limiter.
func (l *RedisLimiter) Reserve(ctx context.Context, key string) (time.Duration, error) {
	cooldownKey := l.prefix + ":cooldown:" + key
	ok, err := l.client.SetNX(ctx, cooldownKey, 1, l.cooldown).Result()
	if err != nil {
		return 0, err
	}
	if !ok {
		ttl, err := l.client.TTL(ctx, cooldownKey).Result()
		if err != nil {
			return 0, err
		}
		return ttl, nil
	}

	windowKey := l.prefix + ":window:" + key
	count, err := l.client.Incr(ctx, windowKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, windowKey, l.window).Err(); err != nil {
			return 0, err
		}
	}
	if count > int64(l.windowMax) {
		ttl, err := l.client.TTL(ctx, windowKey).Result()
		if err != nil {
			return 0, err
		}
		return ttl, nil
	}
	return 0, nil
}

// RedisOnceSet is a Redis-backed OnceSet. Entries expire after the given TTL
// so the keyspace does not grow without bound.
type RedisOnceSet struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisOnceSet constructs a set keyed under the given prefix.
func NewRedisOnceSet(client *redis.Client, prefix string, ttl time.Duration) *RedisOnceSet {
	return &RedisOnceSet{client: client, prefix: prefix, ttl: ttl}
}

// MarkOnce implements OnceSet.
func (s *RedisOnceSet) MarkOnce(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+":"+key, 1, s.ttl).Result()
}
