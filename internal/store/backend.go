package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/altruria/storefront/internal/cache"
	"github.com/altruria/storefront/internal/config"
	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/models"
)

var (
	// ErrBackendUnavailable 存储后端不可用
	ErrBackendUnavailable = errors.New("store backend unavailable")
	// ErrEmailExists 本地演示用户邮箱重复
	ErrEmailExists = errors.New("account with that email already exists")
)

// Backend 键值存储后端，值为 JSON 文本
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// NewBackend 按配置创建存储后端
func NewBackend(cfg config.StoreConfig) (Backend, error) {
	session := strings.TrimSpace(cfg.Session)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case constants.StoreDriverMemory:
		return NewMemoryBackend(), nil
	case constants.StoreDriverRedis:
		client := cache.Client()
		if client == nil {
			return nil, fmt.Errorf("%w: redis is not enabled", ErrBackendUnavailable)
		}
		return NewRedisBackend(client, cache.Prefix(), session), nil
	case "", constants.StoreDriverSQLite, constants.StoreDriverPostgres, "postgresql":
		db, err := models.OpenDB(cfg.Driver, cfg.DSN, models.DBPoolConfig{
			MaxOpenConns:           cfg.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.Pool.ConnMaxIdleTimeSeconds,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if err := models.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("%w: migrate failed: %v", ErrBackendUnavailable, err)
		}
		return NewGormBackend(db, session), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
