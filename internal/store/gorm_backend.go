package store

import (
	"context"
	"errors"
	"time"

	"github.com/altruria/storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultSession = "default"

// GormBackend 基于 GORM 的存储（sqlite/postgres），按会话隔离
type GormBackend struct {
	db      *gorm.DB
	session string
}

// NewGormBackend 创建 GORM 存储
func NewGormBackend(db *gorm.DB, session string) *GormBackend {
	if session == "" {
		session = defaultSession
	}
	return &GormBackend{db: db, session: session}
}

// DB 底层连接
func (b *GormBackend) DB() *gorm.DB {
	return b.db
}

// WithSession 切换会话
func (b *GormBackend) WithSession(session string) *GormBackend {
	return NewGormBackend(b.db, session)
}

func (b *GormBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.StoreEntry
	err := b.db.WithContext(ctx).
		Where("session_id = ? AND store_key = ?", b.session, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(entry.Value), true, nil
}

func (b *GormBackend) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now()
	entry := models.StoreEntry{
		SessionID: b.session,
		Key:       key,
		Value:     string(value),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "store_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (b *GormBackend) Remove(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).
		Where("session_id = ? AND store_key = ?", b.session, key).
		Delete(&models.StoreEntry{}).Error
}
