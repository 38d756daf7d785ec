package public

import "github.com/altruria/storefront/internal/provider"

// Handler 前台接口处理器入口
// 说明：渲染层通过该处理器驱动商品、购物车、结算与账号流程。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
