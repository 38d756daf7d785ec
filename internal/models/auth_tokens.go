package models

import (
	"strings"
	"time"
)

// AuthTokens 登录令牌对
type AuthTokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// HasAccess 是否持有访问令牌
func (t *AuthTokens) HasAccess() bool {
	return t != nil && strings.TrimSpace(t.AccessToken) != ""
}

// HasRefresh 是否持有刷新令牌
func (t *AuthTokens) HasRefresh() bool {
	return t != nil && strings.TrimSpace(t.RefreshToken) != ""
}

// ExpiredAfter 按固定窗口启发式判断访问令牌是否过期
func (t *AuthTokens) ExpiredAfter(window time.Duration, now time.Time) bool {
	if !t.HasAccess() {
		return true
	}
	if t.IssuedAt.IsZero() {
		return true
	}
	return now.Sub(t.IssuedAt) >= window
}
