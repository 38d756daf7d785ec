package main

import (
	"context"
	"errors"
	"time"

	"github.com/altruria/storefront/internal/config"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"
	"github.com/altruria/storefront/internal/store"
)

// demoUsers 本地演示账号，仅用于无后端时浏览结算页
var demoUsers = []struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Address   string
}{
	{FirstName: "Maria", LastName: "Santos", Email: "maria.santos@example.com", Mobile: "09171234567", Address: "123 Rizal St, Tarlac City"},
	{FirstName: "Jose", LastName: "Reyes", Email: "jose.reyes@example.com", Mobile: "09281234567", Address: "45 Mabini Ave, Capas"},
	{FirstName: "Ana", LastName: "Cruz", Email: "ana.cruz@example.com", Mobile: "09391234567", Address: "8 Luna Rd, Concepcion"},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	backend, err := store.NewBackend(cfg.Store)
	if err != nil {
		stdLog.Fatalf("Failed to open store: %v", err)
	}
	local := store.New(backend)
	ctx := context.Background()

	// 演示账号 ID 以毫秒区分
	now := time.Now()
	created := 0
	for i, item := range demoUsers {
		user := models.NewLocalUser(now.Add(time.Duration(i)*time.Millisecond), item.FirstName, item.LastName, item.Email, item.Mobile, item.Address)
		if err := local.CreateLocalUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrEmailExists) {
				logger.Infow("seed_demo_user_exists", "email", item.Email)
				continue
			}
			stdLog.Fatalf("Failed to create demo user %s: %v", item.Email, err)
		}
		created++
	}

	logger.Infow("seed_completed", "driver", cfg.Store.Driver, "session", cfg.Store.Session, "demo_users", created)
}
