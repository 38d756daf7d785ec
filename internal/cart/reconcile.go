package cart

import (
	"github.com/altruria/storefront/internal/models"
)

// LineItem 购物车行
type LineItem struct {
	ProductID int          `json:"productId"`
	Name      string       `json:"name"`
	Image     string       `json:"image"`
	Category  string       `json:"category,omitempty"`
	Price     models.Money `json:"price"`
	Quantity  int          `json:"quantity"`
	LineTotal models.Money `json:"lineTotal"`
	Error     bool         `json:"_error,omitempty"`
}

// Summary 购物车渲染模型
type Summary struct {
	Items          []LineItem   `json:"items"`
	Count          int          `json:"count"`
	Subtotal       models.Money `json:"subtotal"`
	Shipping       models.Money `json:"shipping"`
	Total          models.Money `json:"total"`
	DeliveryMethod string       `json:"deliveryMethod,omitempty"`
	Empty          bool         `json:"empty"`
	HasUnresolved  bool         `json:"hasUnresolved"`
}

// ShippingFor 运费只取决于配送方式：自提为 0，配送或未选择时收取固定运费
func ShippingFor(method string, fee models.Money) models.Money {
	if method == models.DeliveryMethodPickup {
		return models.Money{}
	}
	return fee
}

// CheckoutShippingFor 结算页运费：仅选择配送时收取，未选择方式为 0
func CheckoutShippingFor(method string, fee models.Money) models.Money {
	if method == models.DeliveryMethodDelivery {
		return fee
	}
	return models.Money{}
}

// WithShipping 按给定运费重算合计，空购物车不收运费
func (s Summary) WithShipping(shipping models.Money) Summary {
	if s.Empty {
		return s
	}
	s.Shipping = shipping
	s.Total = s.Subtotal.Add(shipping)
	return s
}

// Reconcile 合并购物车条目与商品数据并计算金额
// 缺失的商品以占位商品计入，单价为 0
func Reconcile(entries []models.CartEntry, products map[int]models.Product, method string, fee models.Money, fallbackImage string) Summary {
	summary := Summary{
		Items:          make([]LineItem, 0, len(entries)),
		DeliveryMethod: method,
	}
	if len(entries) == 0 {
		summary.Empty = true
		return summary
	}

	for _, entry := range entries {
		product, ok := products[entry.ProductID]
		if !ok {
			product = models.UnknownProduct(entry.ProductID, fallbackImage)
		}
		price := product.Price
		if product.Error || price.IsNegative() {
			price = models.Money{}
		}
		line := LineItem{
			ProductID: entry.ProductID,
			Name:      product.Name,
			Image:     product.Image,
			Category:  product.Category,
			Price:     price,
			Quantity:  entry.Quantity,
			LineTotal: price.MulQty(entry.Quantity),
			Error:     product.Error,
		}
		if line.Image == "" {
			line.Image = fallbackImage
		}
		summary.Items = append(summary.Items, line)
		summary.Subtotal = summary.Subtotal.Add(line.LineTotal)
		summary.Count += entry.Quantity
		if line.Error {
			summary.HasUnresolved = true
		}
	}
	summary.Shipping = ShippingFor(method, fee)
	summary.Total = summary.Subtotal.Add(summary.Shipping)
	return summary
}
