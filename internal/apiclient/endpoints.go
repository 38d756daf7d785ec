package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/models"
)

// LoginInput 登录参数
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterInput 注册参数
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Mobile          string `json:"mobile,omitempty"`
	Address         string `json:"address,omitempty"`
}

// ProfileUpdate 资料更新参数
type ProfileUpdate struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
	Address          string `json:"address"`
	PreferredPayment string `json:"preferred_payment"`
}

// OrderReceipt 下单成功回执
type OrderReceipt struct {
	ID     string
	Status string
	Total  string
}

// Login 获取令牌对并保存
func (c *Client) Login(ctx context.Context, input LoginInput) (models.AuthTokens, error) {
	var raw map[string]interface{}
	if err := c.CallInto(ctx, Request{
		Method: http.MethodPost,
		Path:   constants.EndpointToken,
		Body:   input,
	}, &raw); err != nil {
		return models.AuthTokens{}, err
	}
	access := readString(raw, "access")
	if strings.TrimSpace(access) == "" {
		return models.AuthTokens{}, fmt.Errorf("%w: login response missing access token", ErrInvalidResponse)
	}
	return c.StoreTokens(ctx, access, readString(raw, "refresh"))
}

// Register 注册后端账号
func (c *Client) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	raw, err := c.Call(ctx, Request{
		Method: http.MethodPost,
		Path:   constants.EndpointRegister,
		Body:   input,
	})
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// Me 获取当前登录用户（仅认证调用）
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	raw, err := c.Call(ctx, Request{Method: http.MethodGet, Path: constants.EndpointMe, Auth: true})
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// UpdateMe 更新当前用户资料
func (c *Client) UpdateMe(ctx context.Context, input ProfileUpdate) (*models.User, error) {
	raw, err := c.Call(ctx, Request{Method: http.MethodPut, Path: constants.EndpointMe, Body: input, Auth: true})
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// ListProducts 获取商品原始记录，兼容数组与 {results}/{data} 包装
// 商品为公开接口，不携带令牌，会话失效不影响浏览
func (c *Client) ListProducts(ctx context.Context, category string) ([]map[string]interface{}, error) {
	var query url.Values
	if category = strings.TrimSpace(category); category != "" {
		query = url.Values{"category": []string{category}}
	}
	raw, err := c.Call(ctx, Request{Method: http.MethodGet, Path: constants.EndpointProducts, Query: query})
	if err != nil {
		return nil, err
	}
	var records []map[string]interface{}
	if err := decodeList(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetProduct 获取单个商品原始记录（公开接口）
func (c *Client) GetProduct(ctx context.Context, id int) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := c.CallInto(ctx, Request{
		Method: http.MethodGet,
		Path:   constants.EndpointProducts + strconv.Itoa(id) + "/",
	}, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty product %d", ErrInvalidResponse, id)
	}
	return raw, nil
}

// CreateOrder 提交订单（认证调用）
func (c *Client) CreateOrder(ctx context.Context, payload models.CheckoutPayload) (*OrderReceipt, error) {
	raw, err := c.Call(ctx, Request{Method: http.MethodPost, Path: constants.EndpointOrders, Body: payload, Auth: true})
	if err != nil {
		return nil, err
	}
	obj, _ := decodeObject(raw)
	return &OrderReceipt{
		ID:     strings.TrimSpace(readString(obj, "id")),
		Status: readString(obj, "status"),
		Total:  readString(obj, "total"),
	}, nil
}

// ListMyOrders 获取当前用户订单
func (c *Client) ListMyOrders(ctx context.Context) ([]models.RemoteOrder, error) {
	raw, err := c.Call(ctx, Request{Method: http.MethodGet, Path: constants.EndpointMyOrders, Auth: true})
	if err != nil {
		return nil, err
	}
	var orders []models.RemoteOrder
	if err := decodeList(raw, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func decodeUser(raw json.RawMessage) (*models.User, error) {
	var envelope struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.User != nil && !envelope.User.ID.IsZero() {
		return envelope.User, nil
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &user, nil
}

// decodeList 解码数组，或 {"results": [...]} / {"data": [...]} 包装
func decodeList(raw json.RawMessage, dest interface{}) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	for _, key := range []string{"results", "data", "items"} {
		if inner, ok := envelope[key]; ok {
			return decodeList(inner, dest)
		}
	}
	return fmt.Errorf("%w: list payload not recognised", ErrInvalidResponse)
}
