package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/provider"
	"github.com/altruria/storefront/internal/queue"

	"github.com/hibiken/asynq"
)

// ErrOrderNotRecorded 后端尚未返回刚提交的订单，交由队列重试
var ErrOrderNotRecorded = errors.New("order not yet recorded by backend")

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderHistorySync, c.handleOrderHistorySync)
}

func (c *Consumer) handleOrderHistorySync(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_order_history_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderHistorySyncPayload(task)
	if err != nil {
		logger.Warnw("worker_order_history_sync_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if c.AccountService == nil {
		logger.Warnw("worker_order_history_sync_skip_account_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if session := c.session(); payload.Session != "" && session != "" && payload.Session != session {
		logger.Debugw("worker_order_history_sync_skip_foreign_session",
			"order_id", payload.OrderID,
			"payload_session", payload.Session,
			"session", session,
		)
		return nil
	}

	result, err := c.AccountService.SyncOrderHistory(ctx, payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_history_sync_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if result.Skipped {
		return nil
	}
	// 本地兜底 ID 不会出现在后端列表中
	if !result.Recorded && !strings.HasPrefix(payload.OrderID, localOrderPrefix) && payload.OrderID != "" {
		logger.Warnw("worker_order_history_sync_order_missing", "order_id", payload.OrderID, "remote", result.Remote)
		return ErrOrderNotRecorded
	}
	return nil
}

const localOrderPrefix = "ORD-"

func (c *Consumer) session() string {
	if c.Config == nil {
		return ""
	}
	return strings.TrimSpace(c.Config.Store.Session)
}
