package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisWindow is the shared-state WindowStore for multi-instance
// deployments: one sorted set per key, scored by event time in
// microseconds. Same admission semantics as MemoryWindow.
type RedisWindow struct {
	client *redis.Client
	prefix string
}

func NewRedisWindow(client *redis.Client, prefix string) *RedisWindow {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisWindow{client: client, prefix: prefix}
}

func (w *RedisWindow) Allow(ctx context.Context, key string, max int, window time.Duration) (Decision, error) {
	now := time.Now()
	redisKey := w.prefix + ":" + key
	threshold := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)

	pipe := w.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", threshold)
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(countCmd.Val())
	if count >= max {
		oldest, err := w.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err != nil {
			return Decision{}, err
		}
		retryAfter := time.Second
		if len(oldest) > 0 {
			oldestAt := time.UnixMicro(int64(oldest[0].Score))
			if wait := oldestAt.Add(window).Sub(now); wait > retryAfter {
				retryAfter = wait
			}
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	admit := w.client.TxPipeline()
	admit.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: uuid.NewString(),
	})
	admit.PExpire(ctx, redisKey, window)
	if _, err := admit.Exec(ctx); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true, Remaining: max - count - 1}, nil
}

// RedisCooldown rides on SET NX with a TTL: the key exists exactly while the
// cooldown runs, so the check-and-set is atomic on the Redis side.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

func NewRedisCooldown(client *redis.Client, prefix string) *RedisCooldown {
	if prefix == "" {
		prefix = "cooldown"
	}
	return &RedisCooldown{client: client, prefix: prefix}
}

func (c *RedisCooldown) TryStart(ctx context.Context, key string, cooldown time.Duration) (CooldownDecision, error) {
	redisKey := c.prefix + ":" + key

	acquired, err := c.client.SetNX(ctx, redisKey, time.Now().UnixMilli(), cooldown).Result()
	if err != nil {
		return CooldownDecision{}, err
	}
	if acquired {
		return CooldownDecision{Allowed: true}, nil
	}

	remaining, err := c.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return CooldownDecision{}, err
	}
	if remaining < 0 {
		remaining = 0
	}
	return CooldownDecision{Allowed: false, Remaining: remaining}, nil
}
