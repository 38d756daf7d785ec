package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/altruria/storefront/internal/models"
	"github.com/altruria/storefront/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *store.LocalStore, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	local := store.New(store.NewMemoryBackend())
	client := New(Options{
		BaseURL: server.URL + "/api/",
		Now:     func() time.Time { return testNow },
	}, local)
	return client, local, server
}

func seedTokens(t *testing.T, local *store.LocalStore, access, refresh string, issuedAt time.Time) {
	t.Helper()
	if err := local.SaveTokens(context.Background(), models.AuthTokens{AccessToken: access, RefreshToken: refresh, IssuedAt: issuedAt}); err != nil {
		t.Fatalf("seed tokens failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestCallAttachesBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "no token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 7, "email": "juan@example.com", "first_name": "Juan"})
	})
	client, local, _ := newTestClient(t, mux)
	seedTokens(t, local, "acc-1", "ref-1", testNow)

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("me failed: %v", err)
	}
	if user.ID != "7" || user.FirstName != "Juan" || !user.HasBackendID() {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestCallRefreshesOn401AndRetriesOnce(t *testing.T) {
	var refreshCalls, orderCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh"] != "ref-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "bad refresh"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc-2"})
	})
	mux.HandleFunc("/api/orders/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&orderCalls, 1)
		if r.Header.Get("Authorization") != "Bearer acc-2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": "ORD-77", "status": "pending"})
	})
	client, local, _ := newTestClient(t, mux)
	seedTokens(t, local, "acc-1", "ref-1", testNow)

	receipt, err := client.CreateOrder(context.Background(), models.CheckoutPayload{DeliveryMethod: models.DeliveryMethodPickup})
	if err != nil {
		t.Fatalf("create order should succeed after refresh: %v", err)
	}
	if receipt.ID != "ORD-77" {
		t.Fatalf("receipt id want ORD-77 got %s", receipt.ID)
	}
	if refreshCalls != 1 || orderCalls != 2 {
		t.Fatalf("want 1 refresh and 2 order calls, got %d and %d", refreshCalls, orderCalls)
	}
	tokens := local.Tokens(context.Background())
	if tokens == nil || tokens.AccessToken != "acc-2" || tokens.RefreshToken != "ref-1" {
		t.Fatalf("refreshed tokens not persisted correctly: %+v", tokens)
	}
}

func TestCallDoesNotRetryTwice(t *testing.T) {
	var refreshCalls, meCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc-2"})
	})
	mux.HandleFunc("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "still unauthorized"})
	})
	client, local, _ := newTestClient(t, mux)
	seedTokens(t, local, "acc-1", "ref-1", testNow)

	_, err := client.Me(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want unauthorized after single retry, got %v", err)
	}
	if refreshCalls != 1 || meCalls != 2 {
		t.Fatalf("want 1 refresh and 2 calls, got %d and %d", refreshCalls, meCalls)
	}
}

func TestRefreshRejectedClearsTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	mux.HandleFunc("/api/users/orders/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
	})
	client, local, _ := newTestClient(t, mux)
	seedTokens(t, local, "acc-1", "ref-1", testNow)

	_, err := client.ListMyOrders(context.Background())
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("want ErrReauthRequired, got %v", err)
	}
	if local.Tokens(context.Background()) != nil {
		t.Fatalf("tokens should be cleared after rejected refresh")
	}
}

func TestRefreshServerErrorKeepsTokensButCallClearsThem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	mux.HandleFunc("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
	})
	client, local, _ := newTestClient(t, mux)
	ctx := context.Background()
	seedTokens(t, local, "acc-1", "ref-1", testNow)

	if _, err := client.Refresh(ctx); err == nil {
		t.Fatalf("direct refresh should fail on 500")
	}
	if local.Tokens(ctx) == nil {
		t.Fatalf("non-401 refresh failure must keep tokens")
	}

	if _, err := client.Me(ctx); !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("call with failed refresh want ErrReauthRequired, got %v", err)
	}
	if local.Tokens(ctx) != nil {
		t.Fatalf("failed refresh inside call should clear tokens")
	}
}

func TestProactiveRefreshAfterWindow(t *testing.T) {
	var refreshCalls, meCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc-fresh"})
	})
	mux.HandleFunc("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		if r.Header.Get("Authorization") != "Bearer acc-fresh" {
			writeJSON(w, http.StatusUnauthorized, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 3, "first_name": "Maria"})
	})
	client, local, _ := newTestClient(t, mux)
	seedTokens(t, local, "acc-stale", "ref-1", testNow.Add(-11*time.Minute))

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("me failed: %v", err)
	}
	if user.FirstName != "Maria" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if refreshCalls != 1 || meCalls != 1 {
		t.Fatalf("want proactive refresh before single call, got refresh=%d calls=%d", refreshCalls, meCalls)
	}
}

func TestRefreshKeepsExistingRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc-2", "refresh": "ref-rotated"})
	})
	client, local, _ := newTestClient(t, mux)
	ctx := context.Background()
	seedTokens(t, local, "acc-1", "ref-1", testNow)

	tokens, err := client.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if tokens.AccessToken != "acc-2" || tokens.RefreshToken != "ref-1" {
		t.Fatalf("refresh token must not rotate: %+v", tokens)
	}
	if stored := local.Tokens(ctx); stored == nil || stored.RefreshToken != "ref-1" {
		t.Fatalf("stored refresh token changed: %+v", stored)
	}
}

func TestProductCallsSkipSessionTokens(t *testing.T) {
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	mux.HandleFunc("/api/products/3/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 3, "name": "Bok Choy", "price": "45.00"})
	})
	client, local, _ := newTestClient(t, mux)
	ctx := context.Background()
	seedTokens(t, local, "acc-stale", "ref-dead", testNow.Add(-time.Hour))

	raw, err := client.GetProduct(ctx, 3)
	if err != nil {
		t.Fatalf("public product fetch should ignore the expired session: %v", err)
	}
	if readString(raw, "name") != "Bok Choy" {
		t.Fatalf("unexpected product: %+v", raw)
	}
	if refreshCalls != 0 {
		t.Fatalf("product fetch must not refresh, got %d", refreshCalls)
	}
	if local.Tokens(ctx) == nil {
		t.Fatalf("product fetch must not clear the session")
	}
}

func TestConcurrentRefreshIsShared(t *testing.T) {
	var refreshCalls int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&refreshCalls, 1) == 1 {
			arrived <- struct{}{}
		}
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc-shared"})
	})
	client, local, _ := newTestClient(t, mux)
	seedTokens(t, local, "acc-1", "ref-1", testNow)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens, err := client.Refresh(context.Background())
			if err == nil {
				results[i] = tokens.AccessToken
			}
		}(i)
	}
	<-arrived
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if refreshCalls != 1 {
		t.Fatalf("concurrent refreshes should share one request, got %d", refreshCalls)
	}
	for i, access := range results {
		if access != "acc-shared" {
			t.Fatalf("caller %d got %q", i, access)
		}
	}
}

func TestNonOKCarriesDetailOrStatusText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Product 9 is out of stock"})
	})
	mux.HandleFunc("/api/products/1/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/api/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
	})
	client, _, _ := newTestClient(t, mux)
	ctx := context.Background()

	_, err := client.CreateOrder(ctx, models.CheckoutPayload{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message() != "Product 9 is out of stock" {
		t.Fatalf("unexpected order error: %v", err)
	}
	if DetailOf(err) != "Product 9 is out of stock" {
		t.Fatalf("detail extraction failed: %q", DetailOf(err))
	}

	_, err = client.GetProduct(ctx, 1)
	if !errors.As(err, &apiErr) || apiErr.Message() != "Bad Gateway" {
		t.Fatalf("status text fallback failed: %v", err)
	}

	_, err = client.Register(ctx, RegisterInput{Username: "juan"})
	if DetailOf(err) != "username: A user with that username already exists." {
		t.Fatalf("field error extraction failed: %q", DetailOf(err))
	}
}

func TestNetworkFailureWrapsErrNetwork(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := New(Options{BaseURL: base + "/api"}, store.New(nil))
	_, err := client.GetProduct(context.Background(), 1)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
}

func TestListProductsAcceptsEnvelopes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("category") == "meats" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"count": 1, "results": []map[string]interface{}{{"id": 1, "name": "Pork Belly"}}})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 1}, {"id": 2}})
	})
	client, _, _ := newTestClient(t, mux)
	ctx := context.Background()

	all, err := client.ListProducts(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("array list failed: %v %+v", err, all)
	}
	meats, err := client.ListProducts(ctx, "meats")
	if err != nil || len(meats) != 1 || readString(meats[0], "name") != "Pork Belly" {
		t.Fatalf("paginated list failed: %v %+v", err, meats)
	}
}

func TestLoginStoresTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/", func(w http.ResponseWriter, r *http.Request) {
		var body LoginInput
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "juan" || body.Password != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc-login", "refresh": "ref-login"})
	})
	client, local, _ := newTestClient(t, mux)
	ctx := context.Background()

	if _, err := client.Login(ctx, LoginInput{Username: "juan", Password: "bad"}); DetailOf(err) != "No active account found with the given credentials" {
		t.Fatalf("bad login should surface detail, got %v", err)
	}
	tokens, err := client.Login(ctx, LoginInput{Username: "juan", Password: "secret123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !tokens.IssuedAt.Equal(testNow) {
		t.Fatalf("issued at should use client clock")
	}
	stored := local.Tokens(ctx)
	if stored == nil || stored.AccessToken != "acc-login" || stored.RefreshToken != "ref-login" {
		t.Fatalf("login tokens not stored: %+v", stored)
	}
	if !client.IsAuthenticated(ctx) {
		t.Fatalf("client should report authenticated")
	}
}
