package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/altruria/storefront/internal/account"
	"github.com/altruria/storefront/internal/apiclient"
	"github.com/altruria/storefront/internal/config"
	"github.com/altruria/storefront/internal/models"
	"github.com/altruria/storefront/internal/provider"
	"github.com/altruria/storefront/internal/queue"
	"github.com/altruria/storefront/internal/store"

	"github.com/hibiken/asynq"
)

func setupConsumerTest(t *testing.T, orderIDs ...int) (*Consumer, *int) {
	t.Helper()
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/orders/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		orders := make([]map[string]interface{}, 0, len(orderIDs))
		for _, id := range orderIDs {
			orders = append(orders, map[string]interface{}{"id": id})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(orders)
	})
	mux.HandleFunc("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": 5, "email": "juan@example.com"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := store.New(store.NewMemoryBackend())
	if err := local.SaveTokens(context.Background(), models.AuthTokens{AccessToken: "acc", RefreshToken: "ref", IssuedAt: now}); err != nil {
		t.Fatalf("seed tokens failed: %v", err)
	}
	client := apiclient.New(apiclient.Options{BaseURL: server.URL + "/api", Now: func() time.Time { return now }}, local)
	container := &provider.Container{
		Config:         &config.Config{Store: config.StoreConfig{Session: "default"}},
		Store:          local,
		API:            client,
		AccountService: account.NewService(local, client, nil, account.Options{}),
	}
	return NewConsumer(container), &calls
}

func newSyncTask(t *testing.T, payload queue.OrderHistorySyncPayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewOrderHistorySyncTask(payload)
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleOrderHistorySyncRecorded(t *testing.T) {
	consumer, calls := setupConsumerTest(t, 41, 42)
	err := consumer.handleOrderHistorySync(context.Background(), newSyncTask(t, queue.OrderHistorySyncPayload{Session: "default", OrderID: "42"}))
	if err != nil {
		t.Fatalf("sync should succeed: %v", err)
	}
	if *calls != 1 {
		t.Fatalf("expected one backend call, got %d", *calls)
	}
	if orders := consumer.Store.Orders(context.Background()); len(orders) != 2 || orders[1].ID != "42" {
		t.Fatalf("sync should cache backend orders locally: %+v", orders)
	}
}

func TestHandleOrderHistorySyncRetriesWhenMissing(t *testing.T) {
	consumer, _ := setupConsumerTest(t, 41)
	err := consumer.handleOrderHistorySync(context.Background(), newSyncTask(t, queue.OrderHistorySyncPayload{OrderID: "42"}))
	if !errors.Is(err, ErrOrderNotRecorded) {
		t.Fatalf("missing order should be retried, got %v", err)
	}

	// 本地兜底 ID 不重试
	err = consumer.handleOrderHistorySync(context.Background(), newSyncTask(t, queue.OrderHistorySyncPayload{OrderID: "ORD-1767225600000"}))
	if err != nil {
		t.Fatalf("local order id should not be retried: %v", err)
	}
}

func TestHandleOrderHistorySyncSkipsForeignSession(t *testing.T) {
	consumer, calls := setupConsumerTest(t, 42)
	err := consumer.handleOrderHistorySync(context.Background(), newSyncTask(t, queue.OrderHistorySyncPayload{Session: "other", OrderID: "42"}))
	if err != nil || *calls != 0 {
		t.Fatalf("foreign session should be skipped: err=%v calls=%d", err, *calls)
	}
}

func TestHandleOrderHistorySyncRejectsBadPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	err := consumer.handleOrderHistorySync(context.Background(), asynq.NewTask(queue.TaskOrderHistorySync, []byte("{bad")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload should skip retry, got %v", err)
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, &Consumer{}); err == nil {
		t.Fatalf("disabled queue should fail")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("nil consumer should fail")
	}
}
