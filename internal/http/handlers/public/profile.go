package public

import (
	"github.com/altruria/storefront/internal/account"
	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetProfile 当前用户资料
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.AccountService.Profile(c.Request.Context())
	if err != nil {
		respondAccountError(c, err, constants.MsgAccountRequestFailed)
		return
	}
	response.Success(c, user)
}

// UpdateProfile 更新资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req account.ProfileForm
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, constants.MsgBadRequest, err)
		return
	}
	user, err := h.AccountService.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		respondAccountError(c, err, constants.MsgAccountRequestFailed)
		return
	}
	response.SuccessWithMsg(c, constants.MsgProfileUpdated, user)
}

// GetOrderHistory 订单历史
func (h *Handler) GetOrderHistory(c *gin.Context) {
	history, err := h.AccountService.OrderHistory(c.Request.Context())
	if err != nil {
		respondAccountError(c, err, constants.MsgAccountRequestFailed)
		return
	}
	response.Success(c, history)
}
