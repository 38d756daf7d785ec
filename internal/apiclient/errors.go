package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNetwork 网络层失败（无 HTTP 响应）
	ErrNetwork = errors.New("network request failed")
	// ErrReauthRequired 令牌刷新失败，需要重新登录
	ErrReauthRequired = errors.New("re-authentication required")
	// ErrUnauthorized 后端返回 401
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound 后端返回 404
	ErrNotFound = errors.New("not found")
	// ErrInvalidResponse 响应无法解析
	ErrInvalidResponse = errors.New("invalid api response")
)

// APIError 后端非 2xx 响应
type APIError struct {
	Status     int
	Detail     string
	StatusText string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message())
}

// Message 优先返回后端 detail，否则返回状态文本
func (e *APIError) Message() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Detail) != "" {
		return e.Detail
	}
	if e.StatusText != "" {
		return e.StatusText
	}
	return http.StatusText(e.Status)
}

// Is 支持 errors.Is(err, ErrUnauthorized/ErrNotFound)
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// DetailOf 提取可展示的错误信息，非 APIError 返回空串
func DetailOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strings.TrimSpace(apiErr.Detail)
	}
	return ""
}

// newAPIError 从响应体中提取 detail / error / message
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, StatusText: http.StatusText(status)}
	raw, ok := decodeObject(body)
	if !ok {
		return apiErr
	}
	for _, key := range []string{"detail", "error", "message"} {
		if text := readString(raw, key); strings.TrimSpace(text) != "" {
			apiErr.Detail = text
			return apiErr
		}
	}
	// DRF 字段级校验错误：{"field": ["msg"]}
	fields := make([]string, 0, len(raw))
	for field := range raw {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if list, ok := raw[field].([]interface{}); ok && len(list) > 0 {
			apiErr.Detail = fmt.Sprintf("%s: %v", field, list[0])
			return apiErr
		}
	}
	return apiErr
}
