package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"content-factory-ai/pkg/logger"
)

// Cache JSON 读穿缓存，项目统计在章节状态变化时失效
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// GetOrLoad 命中时解码到 out；未命中时同键的并发加载合并为一次并回填
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, out any, loader func(ctx context.Context) (any, error)) error {
	ctx, span := tracer.Start(ctx, "redis.Cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	full := c.client.Key("cache", key)
	raw, err := c.client.rdb.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return json.Unmarshal(raw, out)
	case !errors.Is(err, redis.Nil):
		// 缓存不可用时直接回源
		span.RecordError(err)
		logger.Warn(ctx, "cache read failed, loading from source", "key", key, "error", err)
	}

	v, err, shared := c.group.Do(full, func() (any, error) {
		return c.fill(ctx, full, ttl, loader)
	})
	span.SetAttributes(attribute.Bool("cache.hit", false), attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}

func (c *Cache) fill(ctx context.Context, full string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	data, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.rdb.Set(ctx, full, raw, ttl).Err(); err != nil {
		logger.Warn(ctx, "cache write failed", "key", full, "error", err)
	}
	return raw, nil
}

// Delete 删除缓存键
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "redis.Cache.Delete",
		trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.client.Key("cache", k)
	}
	if err := c.client.rdb.Del(ctx, full...).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
