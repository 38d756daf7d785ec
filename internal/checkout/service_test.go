package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/altruria/storefront/internal/apiclient"
	"github.com/altruria/storefront/internal/authz"
	"github.com/altruria/storefront/internal/cart"
	"github.com/altruria/storefront/internal/catalog"
	"github.com/altruria/storefront/internal/models"
	"github.com/altruria/storefront/internal/notify"
	"github.com/altruria/storefront/internal/store"
)

var fixedNow = time.UnixMilli(1767225600000)

type fakeAPI struct {
	authenticated bool
	me            *models.User
	receipt       *apiclient.OrderReceipt
	createErr     error
	payloads      []models.CheckoutPayload
}

func (f *fakeAPI) IsAuthenticated(ctx context.Context) bool { return f.authenticated }

func (f *fakeAPI) Me(ctx context.Context) (*models.User, error) {
	if f.me == nil {
		return nil, apiclient.ErrUnauthorized
	}
	return f.me, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, payload models.CheckoutPayload) (*apiclient.OrderReceipt, error) {
	f.payloads = append(f.payloads, payload)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.receipt == nil {
		return &apiclient.OrderReceipt{}, nil
	}
	return f.receipt, nil
}

type stubResolver map[int]models.Product

func (r stubResolver) Resolve(ctx context.Context, ids []int) catalog.Resolution {
	res := catalog.Resolution{Products: map[int]models.Product{}}
	for _, id := range ids {
		if p, ok := r[id]; ok {
			res.Products[id] = p
			continue
		}
		res.Products[id] = models.UnknownProduct(id, "")
		res.Failed = append(res.Failed, id)
	}
	return res
}

type checkoutFixture struct {
	svc    *Service
	local  *store.LocalStore
	api    *fakeAPI
	center *notify.Center
}

func setupCheckoutTest(t *testing.T, api *fakeAPI, entries ...models.CartEntry) checkoutFixture {
	t.Helper()
	ctx := context.Background()
	local := store.New(store.NewMemoryBackend())
	if len(entries) > 0 {
		if err := local.SaveCart(ctx, entries); err != nil {
			t.Fatalf("seed cart failed: %v", err)
		}
	}
	price, _ := models.ParseMoney("150.00")
	center := notify.NewCenter(0, func(d time.Duration, fn func()) { fn() })
	cartService := cart.NewService(local, stubResolver{1: {ID: 1, Name: "Pork Belly", Price: price}}, center, cart.Options{
		ShippingFee: models.NewMoneyFromInt(80),
	})
	authzService, err := authz.NewService(nil)
	if err != nil {
		t.Fatalf("new authz failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap authz failed: %v", err)
	}
	svc := NewService(local, cartService, api, authzService, center, nil, Options{
		Session:         "test",
		AllowGuest:      true,
		RedirectDelay:   2 * time.Second,
		Page:            "/pages/checkout.html",
		SuccessRedirect: "/index.html",
		LoginRedirect:   "/pages/login.html",
		PickupLocations: []string{"Altruria Farm, Tarlac"},
		Now:             func() time.Time { return fixedNow },
	})
	return checkoutFixture{svc: svc, local: local, api: api, center: center}
}

func memberUser() *models.User {
	return &models.User{ID: "12", FirstName: "Juan", LastName: "Dela Cruz", Email: "juan@example.com", Mobile: "09171234567", PreferredPayment: "gcash"}
}

func pickupForm() Form {
	return Form{
		DeliveryMethod: "pickup",
		Name:           "Juan Dela Cruz",
		Phone:          "09171234567",
		Email:          "juan@example.com",
		PickupLocation: "Altruria Farm, Tarlac",
	}
}

func TestSubmitRejectsInvalidForms(t *testing.T) {
	cases := []struct {
		name  string
		form  Form
		first string
	}{
		{"missing method", Form{}, "Please select a delivery method (Pick Up or Delivery)"},
		{"pickup without location", Form{DeliveryMethod: "pickup", Name: "Juan", Phone: "0917", Email: "juan@example.com"}, "Please select a pick-up location"},
		{"delivery without address", Form{DeliveryMethod: "delivery", Name: "Juan", Phone: "0917", Email: "juan@example.com", PaymentMethod: "cod", Address: "   "}, "Please enter your delivery address"},
		{"blank name", Form{DeliveryMethod: "pickup", Name: " ", Phone: "0917", Email: "juan@example.com", PickupLocation: "Farm"}, "Please enter your name"},
		{"bad email", Form{DeliveryMethod: "pickup", Name: "Juan", Phone: "0917", Email: "juan@example", PickupLocation: "Farm"}, "Please enter a valid email address"},
		{"delivery without payment", Form{DeliveryMethod: "delivery", Name: "Juan", Phone: "0917", Email: "juan@example.com", Address: "Makati"}, "Please select a payment method"},
		{"unknown payment", Form{DeliveryMethod: "delivery", Name: "Juan", Phone: "0917", Email: "juan@example.com", Address: "Makati", PaymentMethod: "crypto"}, "Please select a valid payment method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{authenticated: true}
			fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1})
			_, err := fx.svc.Submit(context.Background(), tc.form)
			var verr *ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
			if verr.First() != tc.first {
				t.Fatalf("first message want %q got %q", tc.first, verr.First())
			}
			if fx.svc.Status().State != StateEditing {
				t.Fatalf("state should stay editing, got %s", fx.svc.Status().State)
			}
			if len(api.payloads) != 0 {
				t.Fatalf("invalid form must never reach the network")
			}
		})
	}
}

func TestValidationAggregatesInFormOrder(t *testing.T) {
	err := Validate(NewValidator(), Form{DeliveryMethod: "delivery", Email: "nope"}.Normalize())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want validation error, got %v", err)
	}
	want := []string{"name", "phone", "email", "address", "payment_method"}
	if len(verr.Problems) != len(want) {
		t.Fatalf("unexpected problems: %+v", verr.Problems)
	}
	for i, field := range want {
		if verr.Problems[i].Field != field {
			t.Fatalf("problem %d want %s got %s", i, field, verr.Problems[i].Field)
		}
	}
}

func TestSubmitSuccessClearsCartAndRecordsOrder(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{authenticated: true, receipt: &apiclient.OrderReceipt{ID: "42", Status: "pending"}}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 2})
	if err := fx.local.SaveCurrentUser(ctx, memberUser()); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	if _, err := fx.svc.Prepare(ctx); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	fx.center.Drain()

	result, err := fx.svc.Submit(ctx, pickupForm())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.OrderID != "42" || fx.svc.Status().State != StateSucceeded || fx.svc.Status().OrderID != "42" {
		t.Fatalf("unexpected result %+v status %+v", result, fx.svc.Status())
	}
	payload := api.payloads[0]
	if payload.ShippingAddress != "Pickup at: Altruria Farm, Tarlac" || payload.PaymentMethod != "cod" || payload.DeliveryMethod != "pickup" {
		t.Fatalf("unexpected pickup payload: %+v", payload)
	}
	if payload.Total.String() != "300.00" || len(payload.Items) != 1 || payload.Items[0].Quantity != 2 {
		t.Fatalf("unexpected payload totals: %+v", payload)
	}
	if len(fx.local.Cart(ctx)) != 0 || fx.local.CheckoutSnapshot(ctx) != nil {
		t.Fatalf("cart and snapshot should be cleared after success")
	}
	orders := fx.local.Orders(ctx)
	if len(orders) != 1 || orders[0].ID != "42" || orders[0].Items != 1 || orders[0].CustomerEmail != "juan@example.com" {
		t.Fatalf("unexpected local order backup: %+v", orders)
	}
	feed := fx.center.Drain()
	if feed.Redirect != "/index.html" || len(feed.Notifications) != 1 || feed.Notifications[0].Level != "success" {
		t.Fatalf("unexpected feed after success: %+v", feed)
	}
	if _, err := fx.svc.Submit(ctx, pickupForm()); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("succeeded state is terminal, got %v", err)
	}
}

func TestSubmitFallsBackToLocalOrderID(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{authenticated: true}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1})
	_ = fx.local.SaveCurrentUser(ctx, memberUser())

	form := pickupForm()
	form.DeliveryMethod = "delivery"
	form.Address = "123 Rizal St, Makati"
	form.PaymentMethod = "GCash"
	result, err := fx.svc.Submit(ctx, form)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.OrderID != "ORD-1767225600000" {
		t.Fatalf("want local fallback id, got %s", result.OrderID)
	}
	payload := api.payloads[0]
	if payload.ShippingAddress != "123 Rizal St, Makati" || payload.PaymentMethod != "gcash" || payload.Total.String() != "230.00" {
		t.Fatalf("unexpected delivery payload: %+v", payload)
	}
}

func TestSubmitServerRejectionKeepsCart(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{authenticated: true, createErr: &apiclient.APIError{Status: http.StatusBadRequest, Detail: "Insufficient stock for Pork Belly"}}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 3})
	_ = fx.local.SaveCurrentUser(ctx, memberUser())
	if _, err := fx.svc.Prepare(ctx); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	fx.center.Drain()

	_, err := fx.svc.Submit(ctx, pickupForm())
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want api error, got %v", err)
	}
	status := fx.svc.Status()
	if status.State != StateEditing || status.LastError != "Error placing order: Insufficient stock for Pork Belly" {
		t.Fatalf("unexpected status after failure: %+v", status)
	}
	if got := fx.local.Cart(ctx); len(got) != 1 || got[0].Quantity != 3 {
		t.Fatalf("cart must survive failure: %+v", got)
	}
	if fx.local.CheckoutSnapshot(ctx) == nil {
		t.Fatalf("snapshot must survive failure")
	}
	if len(fx.local.Orders(ctx)) != 0 {
		t.Fatalf("no local order may be recorded on failure")
	}

	// 重试成功
	api.createErr = nil
	api.receipt = &apiclient.OrderReceipt{ID: "77"}
	if _, err := fx.svc.Submit(ctx, pickupForm()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
}

func TestSubmitNetworkFailureUsesGenericMessage(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{authenticated: true, createErr: apiclient.ErrNetwork}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1})
	_ = fx.local.SaveCurrentUser(ctx, memberUser())

	if _, err := fx.svc.Submit(ctx, pickupForm()); !errors.Is(err, apiclient.ErrNetwork) {
		t.Fatalf("want network error, got %v", err)
	}
	feed := fx.center.Drain()
	if len(feed.Notifications) != 1 || feed.Notifications[0].Message != "Error processing order. Please try again." {
		t.Fatalf("unexpected notifications: %+v", feed.Notifications)
	}
}

func TestSubmitReauthRequiredRedirectsToLogin(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{authenticated: true, createErr: apiclient.ErrReauthRequired}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1})
	_ = fx.local.SaveCurrentUser(ctx, memberUser())

	if _, err := fx.svc.Submit(ctx, pickupForm()); !errors.Is(err, apiclient.ErrReauthRequired) {
		t.Fatalf("want reauth error, got %v", err)
	}
	feed := fx.center.Drain()
	if feed.Redirect != "/pages/login.html" || feed.Notifications[0].Message != "Your session has expired. Please log in again." {
		t.Fatalf("unexpected feed: %+v", feed)
	}
}

func TestGuestCannotSubmit(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1})

	snapshot, err := fx.svc.Prepare(ctx)
	if err != nil {
		t.Fatalf("prepare as guest failed: %v", err)
	}
	if snapshot.User == nil || !snapshot.User.IsGuest() || snapshot.Total.String() != "230.00" {
		t.Fatalf("unexpected guest snapshot: %+v", snapshot)
	}
	fx.center.Drain()

	_, err = fx.svc.Submit(ctx, pickupForm())
	if !errors.Is(err, ErrGuestLoginRequired) {
		t.Fatalf("want ErrGuestLoginRequired, got %v", err)
	}
	feed := fx.center.Drain()
	if feed.Redirect != "/pages/login.html" || feed.Notifications[0].Message != "Please log in or create an account to complete your order" {
		t.Fatalf("unexpected feed: %+v", feed)
	}
	if len(api.payloads) != 0 || len(fx.local.Cart(ctx)) != 1 {
		t.Fatalf("guest submission must not reach backend or clear cart")
	}
}

func TestSubmitWithoutIdentity(t *testing.T) {
	api := &fakeAPI{}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1})
	if _, err := fx.svc.Submit(context.Background(), pickupForm()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("want ErrLoginRequired, got %v", err)
	}
	if fx.svc.Status().State != StateEditing {
		t.Fatalf("failure should return to editing")
	}
}

func TestSubmitWithEmptyCart(t *testing.T) {
	api := &fakeAPI{authenticated: true}
	fx := setupCheckoutTest(t, api)
	if _, err := fx.svc.Submit(context.Background(), pickupForm()); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty, got %v", err)
	}
	if _, err := fx.svc.Prepare(context.Background()); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("prepare with empty cart want ErrCartEmpty, got %v", err)
	}
}

func TestLoadResolvesUserAndWarnsOnce(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{authenticated: true, me: memberUser()}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1}, models.CartEntry{ProductID: 9, Quantity: 2})

	page, err := fx.svc.Load(ctx, "pickup")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if page.Prefill.Name != "Juan Dela Cruz" || page.Prefill.PaymentMethod != "gcash" || page.Prefill.Phone != "09171234567" {
		t.Fatalf("unexpected prefill: %+v", page.Prefill)
	}
	if len(page.Summary.Items) != 2 || !page.Summary.Items[1].Error || page.Summary.Total.String() != "150.00" {
		t.Fatalf("unexpected summary: %+v", page.Summary)
	}
	if fx.local.CurrentUser(ctx) == nil {
		t.Fatalf("resolved user should be cached")
	}
	feed := fx.center.Drain()
	if len(feed.Notifications) != 1 || feed.Notifications[0].Level != "warning" {
		t.Fatalf("want a single aggregate warning, got %+v", feed.Notifications)
	}
}

func TestLoadShippingFollowsSelectedMethod(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{authenticated: true, me: memberUser()}
	fx := setupCheckoutTest(t, api, models.CartEntry{ProductID: 1, Quantity: 1})

	cases := []struct {
		method   string
		shipping string
		total    string
	}{
		{method: "", shipping: "0.00", total: "150.00"},
		{method: "pickup", shipping: "0.00", total: "150.00"},
		{method: "Delivery", shipping: "80.00", total: "230.00"},
	}
	for _, tc := range cases {
		page, err := fx.svc.Load(ctx, tc.method)
		if err != nil {
			t.Fatalf("load %q failed: %v", tc.method, err)
		}
		if page.Summary.Shipping.String() != tc.shipping || page.Summary.Total.String() != tc.total {
			t.Fatalf("method %q want shipping %s total %s, got %s %s", tc.method, tc.shipping, tc.total, page.Summary.Shipping, page.Summary.Total)
		}
	}
}

func TestLoadWithoutUserRedirects(t *testing.T) {
	fx := setupCheckoutTest(t, &fakeAPI{}, models.CartEntry{ProductID: 1, Quantity: 1})
	if _, err := fx.svc.Load(context.Background(), ""); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("want ErrLoginRequired, got %v", err)
	}
	if fx.center.Drain().Redirect != "/pages/login.html" {
		t.Fatalf("load without user should redirect to login")
	}
}

func TestMachineRejectsConcurrentSubmission(t *testing.T) {
	m := NewMachine(nil)
	if err := m.BeginValidation(); err != nil {
		t.Fatalf("begin validation failed: %v", err)
	}
	if err := m.BeginValidation(); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("want ErrSubmissionInProgress, got %v", err)
	}
	if err := m.BeginSubmission(); err != nil {
		t.Fatalf("begin submission failed: %v", err)
	}
	if m.Reset() {
		t.Fatalf("reset must not interrupt a submission")
	}
	if err := m.Succeed("1"); err != nil {
		t.Fatalf("succeed failed: %v", err)
	}
	if err := m.Fail("late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("succeeded is terminal, got %v", err)
	}
}
