package models

import "strings"

// UnknownProductName 无法解析的商品占位名称
const UnknownProductName = "Unknown Product"

// 商品分类
const (
	CategoryMeats      = "meats"
	CategoryVegetables = "vegetables"
)

// Product 规范化后的商品记录
type Product struct {
	ID          int    `json:"id"`                    // 商品ID
	Name        string `json:"name"`                  // 名称
	Price       Money  `json:"price"`                 // 单价
	Image       string `json:"image"`                 // 图片地址
	Category    string `json:"category,omitempty"`    // 分类
	Description string `json:"description,omitempty"` // 描述
	Stock       *int   `json:"stock,omitempty"`       // 库存，nil 表示不限
	Error       bool   `json:"_error,omitempty"`      // 是否为解析失败的占位记录
}

// UnknownProduct 构建占位商品：价格为 0，不参与金额贡献
func UnknownProduct(id int, fallbackImage string) Product {
	return Product{
		ID:    id,
		Name:  UnknownProductName,
		Image: fallbackImage,
		Error: true,
	}
}

// InCategory 分类匹配（忽略大小写，空分类匹配全部）
func (p Product) InCategory(category string) bool {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(p.Category), category)
}
