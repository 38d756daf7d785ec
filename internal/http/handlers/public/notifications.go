package public

import (
	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetNotifications 取出待展示的提示与跳转，peek=1 时不清空
func (h *Handler) GetNotifications(c *gin.Context) {
	if c.Query("peek") == "1" {
		response.Success(c, h.Notifier.Pending())
		return
	}
	response.Success(c, h.Notifier.Drain())
}
