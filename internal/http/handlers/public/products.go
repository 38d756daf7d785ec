package public

import (
	"strings"

	"github.com/altruria/storefront/internal/constants"
	handlershared "github.com/altruria/storefront/internal/http/handlers/shared"
	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListProducts 商品列表，可按分类筛选；携带分页参数时返回分页结构
func (h *Handler) ListProducts(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	products, err := h.Resolver.List(c.Request.Context(), category)
	if err != nil {
		respondProductsError(c, err)
		return
	}
	if c.Query("page") == "" && c.Query("page_size") == "" {
		response.Success(c, products)
		return
	}

	page, pageSize := handlershared.NormalizePagination(handlershared.QueryInt(c, "page"), handlershared.QueryInt(c, "page_size"))
	start, end := handlershared.PageBounds(len(products), page, pageSize)
	response.SuccessWithPage(c, products[start:end], response.NewPagination(page, pageSize, int64(len(products))))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	productID, ok := handlershared.ParamPositiveInt(c, "product_id", constants.MsgInvalidProductID)
	if !ok {
		return
	}
	resolution := h.Resolver.Resolve(c.Request.Context(), []int{productID})
	product, found := resolution.Products[productID]
	if !found || resolution.HasFailures() {
		respondError(c, response.CodeNotFound, constants.MsgProductNotFound, nil)
		return
	}
	response.Success(c, product)
}
