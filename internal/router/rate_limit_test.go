package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/altruria/storefront/internal/constants"

	"github.com/gin-gonic/gin"
)

func TestLoginRateLimitKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name  string
		field string
		body  string
		want  string
	}{
		{name: "backend_login", field: "username", body: `{"username":" Juan ","password":"secret123"}`, want: "juan|10.0.0.8"},
		{name: "local_login", field: "email", body: `{"email":"Maria@Example.com"}`, want: "maria@example.com|10.0.0.8"},
		{name: "missing_field", field: "username", body: `{"password":"secret123"}`, want: "10.0.0.8"},
		{name: "malformed_body", field: "email", body: `{bad`, want: "10.0.0.8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")
			c.Request.RemoteAddr = "10.0.0.8:5123"
			if got := KeyByIPAndJSONField(tc.field)(c); got != tc.want {
				t.Fatalf("key want %s got %s", tc.want, got)
			}
		})
	}
}

func TestLoginBodySurvivesKeyExtraction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/api/v1/auth/local/login",
		RateLimitMiddleware(nil, RateLimitRule{Prefix: "sf:rate:login", WindowSeconds: 300, MaxRequests: 5}, KeyByIPAndJSONField("email")),
		func(c *gin.Context) {
			var req struct {
				Email string `json:"email"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusOK, gin.H{"email": ""})
				return
			}
			c.JSON(http.StatusOK, gin.H{"email": req.Email})
		})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/local/login", strings.NewReader(`{"email":"maria@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"email":"maria@example.com"`) {
		t.Fatalf("handler should still bind the login body, got %s", w.Body.String())
	}

	// 读取字段后 body 需可重复读取
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"juan"}`))
	_ = KeyByIPAndJSONField("username")(c)
	if got := readJSONField(c, "username"); got != "juan" {
		t.Fatalf("body should be restored, got %q", got)
	}
}

func TestRateLimitMessage(t *testing.T) {
	if got := (RateLimitRule{}).limitMessage(42); got != "Too many attempts. Please try again in 42 seconds." {
		t.Fatalf("default message mismatch: %s", got)
	}
	custom := RateLimitRule{Message: "Login locked for %ds"}
	if got := custom.limitMessage(7); got != "Login locked for 7s" {
		t.Fatalf("custom message mismatch: %s", got)
	}
	if !strings.Contains(constants.MsgRateLimited, "%d") {
		t.Fatalf("default message must carry a wait placeholder")
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		input interface{}
		want  int64
		ok    bool
	}{
		{input: int64(4), want: 4, ok: true},
		{input: float64(299.7), want: 299, ok: true},
		{input: "5", want: 0, ok: false},
	}
	for _, tc := range cases {
		got, ok := toInt64(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("toInt64(%v) want %d %v got %d %v", tc.input, tc.want, tc.ok, got, ok)
		}
	}
}
