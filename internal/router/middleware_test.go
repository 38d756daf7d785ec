package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/http/response"
	"github.com/altruria/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddlewareTagsErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/api/v1/products/:product_id", func(c *gin.Context) {
		response.Error(c, response.CodeNotFound, constants.MsgProductNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/9", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp struct {
		StatusCode int               `json:"status_code"`
		Msg        string            `json:"msg"`
		Data       map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != response.CodeNotFound || resp.Data["request_id"] != "req-123" {
		t.Fatalf("error envelope should carry the request id: %+v", resp)
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/v1/products/9", nil))
	if strings.TrimSpace(w2.Header().Get(requestIDHeader)) == "" {
		t.Fatalf("request id should be generated when absent")
	}
}

func TestIdentityAuthzMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(IdentityAuthzMiddleware(nil))
	r.GET("/api/v1/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("status_code want 500 got %d", resp.StatusCode)
	}
}

func TestIdentityAuthzMiddlewareAllowsMember(t *testing.T) {
	_, container, _ := setupRouterTest(t)
	ctx := context.Background()
	if _, err := container.API.StoreTokens(ctx, "acc", "ref"); err != nil {
		t.Fatalf("store tokens failed: %v", err)
	}
	if err := container.Store.SaveCurrentUser(ctx, &models.User{ID: models.FlexibleID("5"), Email: "juan@example.com"}); err != nil {
		t.Fatalf("save user failed: %v", err)
	}

	r := gin.New()
	r.Use(IdentityAuthzMiddleware(container))
	r.GET("/api/v1/me/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString(identityRoleContextKey)})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me/orders", nil))
	if !strings.Contains(w.Body.String(), constants.RoleMember) {
		t.Fatalf("member should pass with role in context, got %s", w.Body.String())
	}
}
