package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/logger"
)

const defaultFeedLimit = 50

// Notification 一条瞬时提示
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Feed 待渲染的提示与跳转
type Feed struct {
	Notifications []Notification `json:"notifications"`
	Redirect      string         `json:"redirect,omitempty"`
}

// Scheduler 延迟执行函数
type Scheduler func(delay time.Duration, fn func())

// AfterFunc 默认调度器
func AfterFunc(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

// Center 提示与跳转中心，渲染层轮询 Drain
type Center struct {
	mu       sync.Mutex
	items    []Notification
	redirect string
	limit    int
	now      func() time.Time
	schedule Scheduler
}

// NewCenter 创建提示中心
func NewCenter(limit int, schedule Scheduler) *Center {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if schedule == nil {
		schedule = AfterFunc
	}
	return &Center{limit: limit, now: time.Now, schedule: schedule}
}

// Push 追加提示，超过上限丢弃最旧的
func (c *Center) Push(level, message string) {
	message = strings.TrimSpace(message)
	if c == nil || message == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Notification{Level: level, Message: message, At: c.now()})
	if overflow := len(c.items) - c.limit; overflow > 0 {
		c.items = append([]Notification(nil), c.items[overflow:]...)
	}
}

func (c *Center) Success(message string) { c.Push(constants.NotifySuccess, message) }

func (c *Center) Error(message string) { c.Push(constants.NotifyError, message) }

func (c *Center) Warning(message string) { c.Push(constants.NotifyWarning, message) }

func (c *Center) Info(message string) { c.Push(constants.NotifyInfo, message) }

// Redirect 立即设置跳转目标
func (c *Center) Redirect(target string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.redirect = strings.TrimSpace(target)
	c.mu.Unlock()
	logger.Debugw("navigation_redirect", "target", target)
}

// RedirectAfter 延迟设置跳转目标，便于提示先被看到
func (c *Center) RedirectAfter(target string, delay time.Duration) {
	if c == nil {
		return
	}
	if delay <= 0 {
		c.Redirect(target)
		return
	}
	c.schedule(delay, func() { c.Redirect(target) })
}

// Pending 查看当前内容但不清空
func (c *Center) Pending() Feed {
	if c == nil {
		return Feed{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Feed{
		Notifications: append([]Notification(nil), c.items...),
		Redirect:      c.redirect,
	}
}

// Drain 返回并清空提示与跳转
func (c *Center) Drain() Feed {
	if c == nil {
		return Feed{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	feed := Feed{Notifications: c.items, Redirect: c.redirect}
	if feed.Notifications == nil {
		feed.Notifications = []Notification{}
	}
	c.items = nil
	c.redirect = ""
	return feed
}
