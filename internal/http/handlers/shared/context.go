package shared

import (
	"strconv"
	"strings"

	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ParamPositiveInt 读取路径中的正整数参数并统一处理错误响应。
func ParamPositiveInt(c *gin.Context, name, invalidMsg string) (int, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		RespondError(c, response.CodeBadRequest, invalidMsg, nil)
		return 0, false
	}
	return value, true
}

// QueryInt 读取查询参数中的整数，缺失或非法时返回 0。
func QueryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return value
}
