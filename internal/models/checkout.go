package models

import "time"

// 配送方式
const (
	DeliveryMethodPickup   = "pickup"
	DeliveryMethodDelivery = "delivery"
)

// 支付方式
const (
	PaymentMethodGCash = "gcash"
	PaymentMethodBank  = "bank"
	PaymentMethodCOD   = "cod"
)

// CheckoutSnapshot 购物车页进入结算时写入的待结算快照
type CheckoutSnapshot struct {
	Items     []CartEntry `json:"items"`
	User      *User       `json:"user,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Total     Money       `json:"total"`
}

// CheckoutPayloadItem 下单请求条目
type CheckoutPayloadItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// CheckoutPayload 下单请求体，每次提交时重新构建
type CheckoutPayload struct {
	Items           []CheckoutPayloadItem `json:"items"`
	DeliveryMethod  string                `json:"delivery_method"`
	ShippingAddress string                `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	Total           Money                 `json:"total"`
}
