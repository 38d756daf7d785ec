package models

import "time"

// StoreEntry 本地持久化键值记录，按会话隔离
type StoreEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                                     // 主键
	SessionID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_store_session_key" json:"session_id"`            // 会话ID
	Key       string    `gorm:"column:store_key;type:varchar(128);not null;uniqueIndex:idx_store_session_key" json:"key"` // 键
	Value     string    `gorm:"type:text;not null" json:"value"`                                                          // JSON 值
	CreatedAt time.Time `json:"created_at"`                                                                               // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                                                                  // 更新时间
}

// TableName 指定表名
func (StoreEntry) TableName() string {
	return "local_store_entries"
}
