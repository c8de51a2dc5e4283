package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RateLimiter 基于有序集合的滑动窗口限流，多实例共享计数
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 先记录本次请求再计数，超限时撤回记录，整个过程在一个 MULTI 中完成
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.RateLimiter.Allow", trace.WithAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
	))
	defer span.End()

	zkey := l.client.Key("ratelimit", key)
	now := l.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	var card *redis.IntCmd
	_, err := l.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, zkey, "-inf", fmt.Sprintf("(%d", now-window.Milliseconds()))
		pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(now), Member: member})
		card = pipe.ZCard(ctx, zkey)
		pipe.PExpire(ctx, zkey, window)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}

	count := card.Val()
	span.SetAttributes(attribute.Int64("ratelimit.count", count))
	if count <= int64(limit) {
		return true, nil
	}

	// 被拒绝的请求不占用窗口
	if err := l.client.rdb.ZRem(ctx, zkey, member).Err(); err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("ratelimit.rejected", true))
	return false, nil
}
