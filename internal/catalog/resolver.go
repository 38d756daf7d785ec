package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/altruria/storefront/internal/cache"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Source 商品数据来源（后端 API）
type Source interface {
	GetProduct(ctx context.Context, id int) (map[string]interface{}, error)
	ListProducts(ctx context.Context, category string) ([]map[string]interface{}, error)
}

// Options 解析器配置
type Options struct {
	Concurrency   int
	FallbackImage string
	CacheTTL      time.Duration
}

// Resolution 解析结果
type Resolution struct {
	Products map[int]models.Product
	Failed   []int
}

// HasFailures 是否存在解析失败的商品
func (r Resolution) HasFailures() bool {
	return len(r.Failed) > 0
}

// Resolver 商品解析器
type Resolver struct {
	source        Source
	concurrency   int
	fallbackImage string
	cacheTTL      time.Duration
}

// NewResolver 创建商品解析器
func NewResolver(source Source, opts Options) *Resolver {
	r := &Resolver{
		source:        source,
		concurrency:   opts.Concurrency,
		fallbackImage: opts.FallbackImage,
		cacheTTL:      opts.CacheTTL,
	}
	if r.concurrency <= 0 {
		r.concurrency = defaultConcurrency
	}
	return r
}

// FallbackImage 占位图片
func (r *Resolver) FallbackImage() string {
	return r.fallbackImage
}

// Resolve 逐个解析商品，单个失败以占位商品代替，不影响其他商品
func (r *Resolver) Resolve(ctx context.Context, ids []int) Resolution {
	unique := uniqueIDs(ids)
	result := Resolution{Products: make(map[int]models.Product, len(unique))}
	if len(unique) == 0 {
		return result
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, id := range unique {
		g.Go(func() error {
			product, ok := r.resolveOne(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			result.Products[id] = product
			if !ok {
				result.Failed = append(result.Failed, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(result.Failed)
	if result.HasFailures() {
		logger.Warnw("product_resolve_partial", "requested", len(unique), "failed_ids", result.Failed)
	}
	return result
}

func (r *Resolver) resolveOne(ctx context.Context, id int) (models.Product, bool) {
	if cached, hit, err := cache.GetProduct(ctx, id); err == nil && hit {
		return *cached, true
	} else if err != nil {
		logger.Debugw("product_cache_read_failed", "product_id", id, "error", err)
	}

	raw, err := r.source.GetProduct(ctx, id)
	if err != nil {
		logger.Warnw("product_resolve_failed", "product_id", id, "error", err)
		return models.UnknownProduct(id, r.fallbackImage), false
	}
	product := MapProduct(raw, id, r.fallbackImage)
	// 购物车以请求ID为准
	product.ID = id
	if err := cache.SetProduct(ctx, product, r.cacheTTL); err != nil {
		logger.Debugw("product_cache_write_failed", "product_id", id, "error", err)
	}
	return product, true
}

// List 获取商品列表，分类不区分大小写
func (r *Resolver) List(ctx context.Context, category string) ([]models.Product, error) {
	records, err := r.source.ListProducts(ctx, category)
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(records))
	for _, raw := range records {
		product := MapProduct(raw, 0, r.fallbackImage)
		if product.ID <= 0 || !product.InCategory(category) {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
