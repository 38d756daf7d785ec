package public

import (
	"github.com/altruria/storefront/internal/checkout"
	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// PrepareCheckout 购物车页进入结算
func (h *Handler) PrepareCheckout(c *gin.Context) {
	snapshot, err := h.CheckoutService.Prepare(c.Request.Context())
	if err != nil {
		respondCheckoutPrepareError(c, err)
		return
	}
	response.Success(c, snapshot)
}

// GetCheckout 结算页渲染模型
func (h *Handler) GetCheckout(c *gin.Context) {
	page, err := h.CheckoutService.Load(c.Request.Context(), c.Query("method"))
	if err != nil {
		respondCheckoutPrepareError(c, err)
		return
	}
	response.Success(c, page)
}

// GetCheckoutState 结算状态
func (h *Handler) GetCheckoutState(c *gin.Context) {
	response.Success(c, h.CheckoutService.Status())
}

// SubmitCheckout 提交订单
func (h *Handler) SubmitCheckout(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, response.CodeBadRequest, constants.MsgBadRequest, err)
		return
	}
	result, err := h.CheckoutService.Submit(c.Request.Context(), form)
	if err != nil {
		respondCheckoutSubmitError(c, err, h.CheckoutService.Status().LastError)
		return
	}
	response.SuccessWithMsg(c, constants.MsgOrderPlaced, result)
}
