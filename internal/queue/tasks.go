package queue

import (
	"encoding/json"

	"github.com/altruria/storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderHistorySync 下单后同步订单历史任务
	TaskOrderHistorySync = constants.TaskOrderHistorySync
)

// OrderHistorySyncPayload 订单历史同步任务载荷
type OrderHistorySyncPayload struct {
	Session string `json:"session"`
	OrderID string `json:"order_id"`
}

// NewOrderHistorySyncTask 创建订单历史同步任务
func NewOrderHistorySyncTask(payload OrderHistorySyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderHistorySync, body), nil
}

// ParseOrderHistorySyncPayload 解析订单历史同步任务载荷
func ParseOrderHistorySyncPayload(task *asynq.Task) (OrderHistorySyncPayload, error) {
	var payload OrderHistorySyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OrderHistorySyncPayload{}, err
	}
	return payload, nil
}
