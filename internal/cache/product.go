package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/altruria/storefront/internal/models"
)

const defaultProductTTL = 5 * time.Minute

func productKey(id int) string {
	return fmt.Sprintf("product:%d", id)
}

// GetProduct 读取商品缓存，占位商品不会被缓存
func GetProduct(ctx context.Context, id int) (*models.Product, bool, error) {
	var product models.Product
	hit, err := GetJSON(ctx, productKey(id), &product)
	if err != nil || !hit {
		return nil, false, err
	}
	if product.Error || product.ID != id {
		return nil, false, nil
	}
	return &product, true, nil
}

// SetProduct 写入商品缓存
func SetProduct(ctx context.Context, product models.Product, ttl time.Duration) error {
	if product.Error || product.ID <= 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultProductTTL
	}
	return SetJSON(ctx, productKey(product.ID), product, ttl)
}

// DelProduct 删除商品缓存
func DelProduct(ctx context.Context, id int) error {
	return Del(ctx, productKey(id))
}
