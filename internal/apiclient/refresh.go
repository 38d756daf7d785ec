package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// jwtExpirySkew 令牌 exp 临近时提前刷新
const jwtExpirySkew = 30 * time.Second

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh 使用刷新令牌换取新的访问令牌
// 并发调用共享同一次刷新；仅 401 时清除令牌，其余失败保留令牌
func (c *Client) Refresh(ctx context.Context) (*models.AuthTokens, error) {
	result, err, shared := c.flight.Do(refreshFlightKey, func() (interface{}, error) {
		return c.doRefresh(ctx)
	})
	if shared {
		logger.Debugw("api_token_refresh_shared")
	}
	if err != nil {
		return nil, err
	}
	tokens := result.(models.AuthTokens)
	return &tokens, nil
}

func (c *Client) doRefresh(ctx context.Context) (models.AuthTokens, error) {
	if c.tokens == nil {
		return models.AuthTokens{}, ErrReauthRequired
	}
	current := c.tokens.Tokens(ctx)
	if !current.HasRefresh() {
		return models.AuthTokens{}, ErrReauthRequired
	}

	status, body, err := c.send(ctx, Request{
		Method: http.MethodPost,
		Path:   constants.EndpointTokenRefresh,
		Body:   refreshRequest{Refresh: current.RefreshToken},
	}, "")
	if err != nil {
		return models.AuthTokens{}, err
	}
	if status == http.StatusUnauthorized {
		c.clearTokens(ctx)
		logger.Infow("api_token_refresh_rejected")
		return models.AuthTokens{}, fmt.Errorf("%w: refresh token rejected", ErrReauthRequired)
	}
	if status < 200 || status >= 300 {
		return models.AuthTokens{}, newAPIError(status, body)
	}

	raw, ok := decodeObject(body)
	access := strings.TrimSpace(readString(raw, "access"))
	if !ok || access == "" {
		return models.AuthTokens{}, fmt.Errorf("%w: refresh response missing access token", ErrInvalidResponse)
	}
	// 刷新令牌不轮换，响应中的 refresh 字段忽略
	next := models.AuthTokens{AccessToken: access, RefreshToken: current.RefreshToken, IssuedAt: c.now()}
	if err := c.tokens.SaveTokens(ctx, next); err != nil {
		logger.Warnw("api_token_refresh_persist_failed", "error", err)
	}
	logger.Infow("api_token_refreshed")
	return next, nil
}

// StoreTokens 登录成功后保存令牌对
func (c *Client) StoreTokens(ctx context.Context, access, refresh string) (models.AuthTokens, error) {
	tokens := models.AuthTokens{
		AccessToken:  strings.TrimSpace(access),
		RefreshToken: strings.TrimSpace(refresh),
		IssuedAt:     c.now(),
	}
	if c.tokens == nil {
		return tokens, nil
	}
	return tokens, c.tokens.SaveTokens(ctx, tokens)
}

// ClearTokens 清除令牌（登出）
func (c *Client) ClearTokens(ctx context.Context) {
	c.clearTokens(ctx)
}

// accessExpired 固定窗口启发式判断，若令牌为 JWT 且 exp 已过也视为过期
func (c *Client) accessExpired(tokens *models.AuthTokens) bool {
	now := c.now()
	if tokens.ExpiredAfter(c.refreshAfter, now) {
		return true
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokens.AccessToken, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Add(jwtExpirySkew).Before(claims.ExpiresAt.Time)
}
