package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	guestIDPrefix = "guest_"
	localIDPrefix = "u_"
)

// User 当前用户身份（后端用户、游客或本地演示用户）
type User struct {
	ID               FlexibleID `json:"id"`                          // 用户ID
	Username         string     `json:"username,omitempty"`          // 用户名
	FirstName        string     `json:"first_name,omitempty"`        // 名
	LastName         string     `json:"last_name,omitempty"`         // 姓
	Email            string     `json:"email,omitempty"`             // 邮箱
	Mobile           string     `json:"mobile,omitempty"`            // 手机号
	Address          string     `json:"address,omitempty"`           // 地址
	PreferredPayment string     `json:"preferred_payment,omitempty"` // 偏好支付方式
	IsAdmin          bool       `json:"is_admin,omitempty"`          // 是否管理员
	Guest            bool       `json:"guest,omitempty"`             // 游客身份
	Local            bool       `json:"local,omitempty"`             // 本地演示用户
	CreatedAt        time.Time  `json:"created_at"`                  // 创建时间
}

// NewGuestUser 生成游客身份
func NewGuestUser(now time.Time) *User {
	return &User{
		ID:        FlexibleID(fmt.Sprintf("%s%d", guestIDPrefix, now.UnixMilli())),
		Guest:     true,
		CreatedAt: now,
	}
}

// NewLocalUser 生成本地演示用户
func NewLocalUser(now time.Time, firstName, lastName, email, mobile, address string) *User {
	return &User{
		ID:        FlexibleID(fmt.Sprintf("%s%d", localIDPrefix, now.UnixMilli())),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.TrimSpace(email),
		Mobile:    strings.TrimSpace(mobile),
		Address:   strings.TrimSpace(address),
		Local:     true,
		CreatedAt: now,
	}
}

// IsGuest 是否为游客或本地生成的身份
func (u *User) IsGuest() bool {
	if u == nil {
		return false
	}
	return u.Guest || strings.HasPrefix(u.ID.String(), guestIDPrefix)
}

// HasBackendID 是否持有后端签发的用户ID
func (u *User) HasBackendID() bool {
	if u == nil || u.ID.IsZero() {
		return false
	}
	return !u.IsGuest() && !u.Local
}

// FullName 展示用全名
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// SplitFullName 拆分全名：首个词为名，其余为姓
func SplitFullName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
