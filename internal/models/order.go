package models

import "time"

// 订单状态
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order 本地订单历史备份，以后端记录为准
type Order struct {
	ID             string      `json:"id"`             // 订单ID（后端ID或 ORD-<毫秒>）
	Date           time.Time   `json:"date"`           // 下单时间
	Items          int         `json:"items"`          // 商品件数
	Total          Money       `json:"total"`          // 订单总额
	Status         string      `json:"status"`         // 状态
	DeliveryMethod string      `json:"deliveryMethod"` // 配送方式
	CustomerName   string      `json:"customerName"`   // 客户姓名
	CustomerPhone  string      `json:"customerPhone"`  // 客户电话
	CustomerEmail  string      `json:"customerEmail"`  // 客户邮箱
	CartItems      []CartEntry `json:"cartItems"`      // 下单时的购物车
}

// RemoteOrderItem 后端订单项
type RemoteOrderItem struct {
	ID       FlexibleID `json:"id"`
	Product  *Product   `json:"product,omitempty"`
	Quantity int        `json:"quantity"`
	Price    Money      `json:"price"`
}

// RemoteOrder 后端订单记录
type RemoteOrder struct {
	ID              FlexibleID        `json:"id"`
	UserEmail       string            `json:"user_email,omitempty"`
	Total           Money             `json:"total"`
	PaymentMethod   string            `json:"payment_method"`
	Status          string            `json:"status"`
	ShippingAddress string            `json:"shipping_address"`
	DeliveryMethod  string            `json:"delivery_method"`
	Items           []RemoteOrderItem `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
}
