package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/altruria/storefront/internal/models"

	"github.com/shopspring/decimal"
)

// productFields 后端字段候选表，按顺序取第一个有效值
var productFields = struct {
	ID          []string
	Name        []string
	Price       []string
	Image       []string
	Category    []string
	Description []string
	Stock       []string
}{
	ID:          []string{"id", "pk", "product_id"},
	Name:        []string{"name", "title"},
	Price:       []string{"price", "unit_price"},
	Image:       []string{"image", "photo", "image_url"},
	Category:    []string{"category", "category_name"},
	Description: []string{"description", "desc"},
	Stock:       []string{"stock", "quantity_available"},
}

// MapProduct 将后端原始记录映射为规范商品
// id 为请求的商品ID，记录中缺失 id 时使用
func MapProduct(raw map[string]interface{}, id int, fallbackImage string) models.Product {
	product := models.Product{
		ID:          id,
		Name:        firstString(raw, productFields.Name),
		Price:       firstPrice(raw, productFields.Price),
		Image:       firstString(raw, productFields.Image),
		Category:    strings.ToLower(firstString(raw, productFields.Category)),
		Description: firstString(raw, productFields.Description),
		Stock:       firstInt(raw, productFields.Stock),
	}
	if recordID := firstInt(raw, productFields.ID); recordID != nil && *recordID > 0 {
		product.ID = *recordID
	}
	if product.Name == "" {
		product.Name = models.UnknownProductName
	}
	if product.Image == "" {
		product.Image = fallbackImage
	}
	return product
}

func firstString(raw map[string]interface{}, candidates []string) string {
	for _, key := range candidates {
		if s := stringValue(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func firstPrice(raw map[string]interface{}, candidates []string) models.Money {
	for _, key := range candidates {
		s := stringValue(raw[key])
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			continue
		}
		return models.NewMoneyFromDecimal(d)
	}
	return models.Money{}
}

func firstInt(raw map[string]interface{}, candidates []string) *int {
	for _, key := range candidates {
		s := stringValue(raw[key])
		if s == "" {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
			n := int(f)
			return &n
		}
	}
	return nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case bool:
		return ""
	case map[string]interface{}:
		// 嵌套分类对象 {"name": "..."}
		return stringValue(val["name"])
	default:
		return ""
	}
}
