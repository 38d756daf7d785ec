package public

import (
	"context"
	"strings"

	"github.com/altruria/storefront/internal/cart"
	"github.com/altruria/storefront/internal/constants"
	handlershared "github.com/altruria/storefront/internal/http/handlers/shared"
	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 加入购物车请求
type CartItemRequest struct {
	ProductID int `json:"product_id" binding:"required"`
	Quantity  int `json:"quantity"`
}

// GetCart 获取购物车汇总，method 用于计算运费
func (h *Handler) GetCart(c *gin.Context) {
	method := strings.ToLower(strings.TrimSpace(c.Query("method")))
	response.Success(c, h.CartService.View(c.Request.Context(), method))
}

// AddCartItem 加入购物车，未指定数量时为 1
func (h *Handler) AddCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, constants.MsgBadRequest, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	mutation, err := h.CartService.Add(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, mutation)
}

// IncrementCartItem 数量加一
func (h *Handler) IncrementCartItem(c *gin.Context) {
	h.mutateCartItem(c, h.CartService.Increment)
}

// DecrementCartItem 数量减一
func (h *Handler) DecrementCartItem(c *gin.Context) {
	h.mutateCartItem(c, h.CartService.Decrement)
}

// RemoveCartItem 移除商品
func (h *Handler) RemoveCartItem(c *gin.Context) {
	h.mutateCartItem(c, h.CartService.Remove)
}

func (h *Handler) mutateCartItem(c *gin.Context, mutate func(ctx context.Context, productID int) (cart.Mutation, error)) {
	productID, ok := handlershared.ParamPositiveInt(c, "product_id", constants.MsgInvalidProductID)
	if !ok {
		return
	}
	mutation, err := mutate(c.Request.Context(), productID)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, mutation)
}
