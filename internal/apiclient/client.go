package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"

	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultRefreshAfter = 10 * time.Minute
	refreshFlightKey    = "token_refresh"
)

// TokenStore 令牌持久化契约
type TokenStore interface {
	Tokens(ctx context.Context) *models.AuthTokens
	SaveTokens(ctx context.Context, tokens models.AuthTokens) error
	ClearTokens(ctx context.Context) error
}

// Options 客户端配置
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RefreshAfter time.Duration
	HTTPClient   *http.Client
	Now          func() time.Time
}

// Request 单次接口调用
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	// Auth 为 true 时附带访问令牌（存在时）并启用 401 刷新重试
	Auth bool
}

// Client 后端 API 网关客户端
type Client struct {
	baseURL      string
	timeout      time.Duration
	refreshAfter time.Duration
	httpClient   *http.Client
	tokens       TokenStore
	now          func() time.Time
	flight       singleflight.Group
}

// New 创建 API 客户端
func New(opts Options, tokens TokenStore) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		timeout:      opts.Timeout,
		refreshAfter: opts.RefreshAfter,
		httpClient:   opts.HTTPClient,
		tokens:       tokens,
		now:          opts.Now,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.refreshAfter <= 0 {
		c.refreshAfter = defaultRefreshAfter
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// BaseURL 返回 API 基础地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsAuthenticated 是否持有访问令牌
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.tokens != nil && c.tokens.Tokens(ctx).HasAccess()
}

// Call 执行调用并返回原始 JSON
// 认证请求遇到 401 且持有刷新令牌时，刷新后仅重试一次；刷新失败清除令牌并返回 ErrReauthRequired
func (c *Client) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	tokens := c.currentTokens(ctx, req.Auth)
	if req.Auth && tokens.HasRefresh() && c.accessExpired(tokens) {
		refreshed, err := c.Refresh(ctx)
		switch {
		case err == nil:
			tokens = refreshed
		case errors.Is(err, ErrReauthRequired):
			return nil, err
		default:
			// 主动刷新失败不中断调用，交由 401 分支处理
			logger.Debugw("api_proactive_refresh_failed", "path", req.Path, "error", err)
		}
	}

	status, body, err := c.send(ctx, req, accessOf(tokens))
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && req.Auth && tokens.HasRefresh() {
		refreshed, refreshErr := c.Refresh(ctx)
		if refreshErr != nil {
			c.clearTokens(ctx)
			logger.Warnw("api_refresh_after_401_failed", "path", req.Path, "error", refreshErr)
			return nil, fmt.Errorf("%w: %v", ErrReauthRequired, refreshErr)
		}
		status, body, err = c.send(ctx, req, accessOf(refreshed))
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		apiErr := newAPIError(status, body)
		logger.Debugw("api_call_rejected", "method", req.Method, "path", req.Path, "status", status, "detail", apiErr.Detail)
		return nil, apiErr
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// CallInto 执行调用并解码到 dest
func (c *Client) CallInto(ctx context.Context, req Request, dest interface{}) error {
	raw, err := c.Call(ctx, req)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) currentTokens(ctx context.Context, auth bool) *models.AuthTokens {
	if !auth || c.tokens == nil {
		return nil
	}
	return c.tokens.Tokens(ctx)
}

func (c *Client) clearTokens(ctx context.Context) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.ClearTokens(ctx); err != nil {
		logger.Warnw("api_clear_tokens_failed", "error", err)
	}
}

func accessOf(tokens *models.AuthTokens) string {
	if tokens == nil {
		return ""
	}
	return strings.TrimSpace(tokens.AccessToken)
}

func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// send 发送单次请求，仅网络层失败返回 error
func (c *Client) send(ctx context.Context, req Request, accessToken string) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := c.withDefaultTimeout(ctx)
	defer cancel()

	var reader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request failed: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.endpoint(req.Path, req.Query), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request failed", ErrNetwork)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Warnw("api_call_network_failed", "method", method, "path", req.Path, "error", err)
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read response failed", ErrNetwork)
	}
	logger.Debugw("api_call",
		"method", method,
		"path", req.Path,
		"status", resp.StatusCode,
		"latency_ms", c.now().Sub(start).Milliseconds(),
	)
	return resp.StatusCode, body, nil
}

func (c *Client) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func decodeObject(body []byte) (map[string]interface{}, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// readString 按路径读取嵌套字段并转为字符串
func readString(raw map[string]interface{}, path ...string) string {
	if raw == nil {
		return ""
	}
	var current interface{} = raw
	for _, seg := range path {
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := current.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return ""
			}
			current = arr[idx]
			continue
		}
		next, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = next[seg]
	}
	switch v := current.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
