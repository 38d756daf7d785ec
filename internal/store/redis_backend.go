package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend 基于 Redis 的存储，key 形如 <prefix>:store:<session>:<key>
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	session string
}

// NewRedisBackend 创建 Redis 存储
func NewRedisBackend(client *redis.Client, prefix, session string) *RedisBackend {
	if session == "" {
		session = defaultSession
	}
	return &RedisBackend{client: client, prefix: prefix, session: session}
}

func (b *RedisBackend) key(key string) string {
	return fmt.Sprintf("%s:store:%s:%s", b.prefix, b.session, key)
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.client == nil {
		return nil, false, ErrBackendUnavailable
	}
	value, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if b.client == nil {
		return ErrBackendUnavailable
	}
	return b.client.Set(ctx, b.key(key), value, 0).Err()
}

func (b *RedisBackend) Remove(ctx context.Context, key string) error {
	if b.client == nil {
		return ErrBackendUnavailable
	}
	return b.client.Del(ctx, b.key(key)).Err()
}
