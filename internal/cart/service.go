package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/altruria/storefront/internal/catalog"
	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"
)

const defaultMaxQuantity = 100

var (
	// ErrInvalidProduct 商品ID无效
	ErrInvalidProduct = errors.New("invalid product id")
	// ErrInvalidQuantity 数量无效
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Store 购物车持久化契约
type Store interface {
	Cart(ctx context.Context) []models.CartEntry
	SaveCart(ctx context.Context, entries []models.CartEntry) error
	ClearCart(ctx context.Context) error
}

// Resolver 商品解析契约
type Resolver interface {
	Resolve(ctx context.Context, ids []int) catalog.Resolution
}

// Notifier 用户提示契约
type Notifier interface {
	Push(level, message string)
}

// Options 购物车配置
type Options struct {
	ShippingFee   models.Money
	MaxQuantity   int
	FallbackImage string
}

// Mutation 变更结果，Changed 为 false 表示无操作
type Mutation struct {
	Changed bool    `json:"changed"`
	Summary Summary `json:"summary"`
}

// Service 购物车服务，变更按会话串行执行
type Service struct {
	mu            sync.Mutex
	store         Store
	resolver      Resolver
	notifier      Notifier
	fee           models.Money
	maxQuantity   int
	fallbackImage string
}

// NewService 创建购物车服务
func NewService(store Store, resolver Resolver, notifier Notifier, opts Options) *Service {
	s := &Service{
		store:         store,
		resolver:      resolver,
		notifier:      notifier,
		fee:           opts.ShippingFee,
		maxQuantity:   opts.MaxQuantity,
		fallbackImage: opts.FallbackImage,
	}
	if s.maxQuantity <= 0 {
		s.maxQuantity = defaultMaxQuantity
	}
	return s
}

// ShippingFee 配送运费
func (s *Service) ShippingFee() models.Money {
	return s.fee
}

// Entries 当前购物车条目
func (s *Service) Entries(ctx context.Context) []models.CartEntry {
	return s.store.Cart(ctx)
}

// Count 购物车件数
func (s *Service) Count(ctx context.Context) int {
	return models.CartQuantity(s.store.Cart(ctx))
}

// View 计算购物车渲染模型，存在无法解析的商品时提示一次
func (s *Service) View(ctx context.Context, method string) Summary {
	summary := s.summarize(ctx, s.store.Cart(ctx), method)
	if summary.HasUnresolved {
		s.notify(constants.NotifyWarning, constants.MsgProductsUnresolved)
	}
	return summary
}

// Summarize 按给定条目计算渲染模型（不提示）
func (s *Service) Summarize(ctx context.Context, entries []models.CartEntry, method string) Summary {
	return s.summarize(ctx, entries, method)
}

// Add 加入购物车，已存在则累加数量
func (s *Service) Add(ctx context.Context, productID, quantity int) (Mutation, error) {
	if productID <= 0 {
		return Mutation{}, ErrInvalidProduct
	}
	if quantity < 1 {
		return Mutation{}, ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.store.Cart(ctx)
	idx := indexOf(entries, productID)
	if idx < 0 {
		entries = append(entries, models.CartEntry{ProductID: productID, Quantity: min(quantity, s.maxQuantity)})
		idx = len(entries) - 1
	} else {
		next := min(entries[idx].Quantity+quantity, s.maxQuantity)
		if next == entries[idx].Quantity {
			return s.unchanged(ctx, entries), nil
		}
		entries[idx].Quantity = next
	}
	if err := s.store.SaveCart(ctx, entries); err != nil {
		return Mutation{}, err
	}
	summary := s.summarize(ctx, entries, "")
	message := constants.MsgItemAdded
	if line, ok := findLine(summary, productID); ok && !line.Error {
		message = fmt.Sprintf(constants.MsgItemAddedNamed, line.Name)
	}
	s.notify(constants.NotifySuccess, message)
	logger.Infow("cart_item_added", "product_id", productID, "quantity", entries[idx].Quantity)
	return Mutation{Changed: true, Summary: summary}, nil
}

// Increment 数量加一，达到上限时无操作
func (s *Service) Increment(ctx context.Context, productID int) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.store.Cart(ctx)
	idx := indexOf(entries, productID)
	if idx < 0 || entries[idx].Quantity >= s.maxQuantity {
		return s.unchanged(ctx, entries), nil
	}
	entries[idx].Quantity++
	if err := s.store.SaveCart(ctx, entries); err != nil {
		return Mutation{}, err
	}
	summary := s.summarize(ctx, entries, "")
	s.notify(constants.NotifySuccess, fmt.Sprintf(constants.MsgQuantityIncreased, entries[idx].Quantity))
	logger.Infow("cart_item_incremented", "product_id", productID, "quantity", entries[idx].Quantity)
	return Mutation{Changed: true, Summary: summary}, nil
}

// Decrement 数量减一，最低为 1，不会移除商品
func (s *Service) Decrement(ctx context.Context, productID int) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.store.Cart(ctx)
	idx := indexOf(entries, productID)
	if idx < 0 || entries[idx].Quantity <= 1 {
		return s.unchanged(ctx, entries), nil
	}
	entries[idx].Quantity--
	if err := s.store.SaveCart(ctx, entries); err != nil {
		return Mutation{}, err
	}
	summary := s.summarize(ctx, entries, "")
	s.notify(constants.NotifySuccess, fmt.Sprintf(constants.MsgQuantityDecreased, entries[idx].Quantity))
	logger.Infow("cart_item_decremented", "product_id", productID, "quantity", entries[idx].Quantity)
	return Mutation{Changed: true, Summary: summary}, nil
}

// Remove 移除商品，不存在时无操作
func (s *Service) Remove(ctx context.Context, productID int) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.store.Cart(ctx)
	idx := indexOf(entries, productID)
	if idx < 0 {
		return s.unchanged(ctx, entries), nil
	}
	next := append(append([]models.CartEntry{}, entries[:idx]...), entries[idx+1:]...)
	if err := s.store.SaveCart(ctx, next); err != nil {
		return Mutation{}, err
	}
	summary := s.summarize(ctx, next, "")
	s.notify(constants.NotifyError, constants.MsgItemRemoved)
	logger.Infow("cart_item_removed", "product_id", productID)
	return Mutation{Changed: true, Summary: summary}, nil
}

// Clear 清空购物车（下单成功、登出）
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ClearCart(ctx)
}

func (s *Service) unchanged(ctx context.Context, entries []models.CartEntry) Mutation {
	return Mutation{Changed: false, Summary: s.summarize(ctx, entries, "")}
}

func (s *Service) summarize(ctx context.Context, entries []models.CartEntry, method string) Summary {
	products := map[int]models.Product{}
	if len(entries) > 0 && s.resolver != nil {
		products = s.resolver.Resolve(ctx, models.CartProductIDs(entries)).Products
	}
	return Reconcile(entries, products, method, s.fee, s.fallbackImage)
}

func (s *Service) notify(level, message string) {
	if s.notifier != nil {
		s.notifier.Push(level, message)
	}
}

func indexOf(entries []models.CartEntry, productID int) int {
	for i, entry := range entries {
		if entry.ProductID == productID {
			return i
		}
	}
	return -1
}

func findLine(summary Summary, productID int) (LineItem, bool) {
	for _, line := range summary.Items {
		if line.ProductID == productID {
			return line, true
		}
	}
	return LineItem{}, false
}
