package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"
)

// LocalStore 本地持久化门面
// 读取失败或数据损坏时返回空默认值并记录告警，不向调用方返回错误
type LocalStore struct {
	backend Backend
}

// New 创建本地存储
func New(backend Backend) *LocalStore {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &LocalStore{backend: backend}
}

// Backend 返回底层存储后端
func (s *LocalStore) Backend() Backend {
	return s.backend
}

// Get 读取原始值，不存在时返回 nil
func (s *LocalStore) Get(ctx context.Context, key string) json.RawMessage {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		logger.Warnw("store_read_failed", "key", key, "error", err)
		return nil
	}
	if !ok || len(raw) == 0 {
		return nil
	}
	return json.RawMessage(raw)
}

// Set 写入任意 JSON 可序列化值
func (s *LocalStore) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, key, payload); err != nil {
		logger.Warnw("store_write_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Remove 删除键
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, key); err != nil {
		logger.Warnw("store_remove_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// load 解码 JSON 到 dest，缺失或损坏时返回 false
func (s *LocalStore) load(ctx context.Context, key string, dest interface{}) bool {
	raw := s.Get(ctx, key)
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warnw("store_value_corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// Cart 读取购物车（非法条目被丢弃）
func (s *LocalStore) Cart(ctx context.Context) []models.CartEntry {
	var entries []models.CartEntry
	if !s.load(ctx, constants.StoreKeyCart, &entries) {
		return []models.CartEntry{}
	}
	return models.NormalizeCart(entries)
}

// SaveCart 覆盖写入购物车
func (s *LocalStore) SaveCart(ctx context.Context, entries []models.CartEntry) error {
	if entries == nil {
		entries = []models.CartEntry{}
	}
	return s.Set(ctx, constants.StoreKeyCart, entries)
}

// ClearCart 清空购物车
func (s *LocalStore) ClearCart(ctx context.Context) error {
	return s.Remove(ctx, constants.StoreKeyCart)
}

// CurrentUser 读取当前用户
func (s *LocalStore) CurrentUser(ctx context.Context) *models.User {
	var user models.User
	if !s.load(ctx, constants.StoreKeyCurrentUser, &user) {
		return nil
	}
	if user.ID.IsZero() {
		return nil
	}
	return &user
}

// SaveCurrentUser 写入当前用户
func (s *LocalStore) SaveCurrentUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return s.ClearCurrentUser(ctx)
	}
	return s.Set(ctx, constants.StoreKeyCurrentUser, user)
}

// ClearCurrentUser 删除当前用户
func (s *LocalStore) ClearCurrentUser(ctx context.Context) error {
	return s.Remove(ctx, constants.StoreKeyCurrentUser)
}

// Tokens 读取令牌
func (s *LocalStore) Tokens(ctx context.Context) *models.AuthTokens {
	var tokens models.AuthTokens
	if !s.load(ctx, constants.StoreKeyTokens, &tokens) {
		return nil
	}
	if !tokens.HasAccess() && !tokens.HasRefresh() {
		return nil
	}
	return &tokens
}

// SaveTokens 写入令牌
func (s *LocalStore) SaveTokens(ctx context.Context, tokens models.AuthTokens) error {
	return s.Set(ctx, constants.StoreKeyTokens, tokens)
}

// ClearTokens 删除令牌
func (s *LocalStore) ClearTokens(ctx context.Context) error {
	return s.Remove(ctx, constants.StoreKeyTokens)
}

// Orders 读取本地订单备份
func (s *LocalStore) Orders(ctx context.Context) []models.Order {
	var orders []models.Order
	if !s.load(ctx, constants.StoreKeyOrders, &orders) {
		return []models.Order{}
	}
	return orders
}

// AppendOrder 追加一条本地订单备份
func (s *LocalStore) AppendOrder(ctx context.Context, order models.Order) error {
	orders := s.Orders(ctx)
	orders = append(orders, order)
	return s.Set(ctx, constants.StoreKeyOrders, orders)
}

// SaveOrders 覆盖本地订单备份
func (s *LocalStore) SaveOrders(ctx context.Context, orders []models.Order) error {
	if orders == nil {
		orders = []models.Order{}
	}
	return s.Set(ctx, constants.StoreKeyOrders, orders)
}

// CheckoutSnapshot 读取待结算快照
func (s *LocalStore) CheckoutSnapshot(ctx context.Context) *models.CheckoutSnapshot {
	var snapshot models.CheckoutSnapshot
	if !s.load(ctx, constants.StoreKeyCheckout, &snapshot) {
		return nil
	}
	snapshot.Items = models.NormalizeCart(snapshot.Items)
	return &snapshot
}

// SaveCheckoutSnapshot 写入待结算快照
func (s *LocalStore) SaveCheckoutSnapshot(ctx context.Context, snapshot models.CheckoutSnapshot) error {
	return s.Set(ctx, constants.StoreKeyCheckout, snapshot)
}

// ClearCheckoutSnapshot 删除待结算快照
func (s *LocalStore) ClearCheckoutSnapshot(ctx context.Context) error {
	return s.Remove(ctx, constants.StoreKeyCheckout)
}

// LocalUsers 读取本地演示用户列表
func (s *LocalStore) LocalUsers(ctx context.Context) []models.User {
	var users []models.User
	if !s.load(ctx, constants.StoreKeyUsers, &users) {
		return []models.User{}
	}
	return users
}

// FindLocalUserByEmail 按邮箱查找演示用户（忽略大小写）
func (s *LocalStore) FindLocalUserByEmail(ctx context.Context, email string) *models.User {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	for _, user := range s.LocalUsers(ctx) {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u
		}
	}
	return nil
}

// CreateLocalUser 创建演示用户，邮箱必须唯一
func (s *LocalStore) CreateLocalUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return nil
	}
	if s.FindLocalUserByEmail(ctx, user.Email) != nil {
		return ErrEmailExists
	}
	users := append(s.LocalUsers(ctx), *user)
	return s.Set(ctx, constants.StoreKeyUsers, users)
}
