package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 SET NX PX 的分布式互斥锁，多实例部署时保证同一项目只有一个运行
type Locker struct {
	client *Client
}

// NewLocker 创建分布式锁
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

// TryLock 尝试加锁，成功时返回释放函数
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.Locker.TryLock")
	defer span.End()

	key := l.client.Key("lock", name)
	token := uuid.NewString()
	span.SetAttributes(attribute.String("lock.key", key))

	ok, err := l.client.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	span.SetAttributes(attribute.Bool("lock.acquired", ok))
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release lock %s: %w", name, err)
		}
		return nil
	}
	return release, true, nil
}
