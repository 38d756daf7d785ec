package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/altruria/storefront/internal/apiclient"
	"github.com/altruria/storefront/internal/authz"
	"github.com/altruria/storefront/internal/cart"
	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"
	"github.com/altruria/storefront/internal/notify"
	"github.com/altruria/storefront/internal/queue"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Store 结算相关的本地持久化契约
type Store interface {
	CheckoutSnapshot(ctx context.Context) *models.CheckoutSnapshot
	SaveCheckoutSnapshot(ctx context.Context, snapshot models.CheckoutSnapshot) error
	ClearCheckoutSnapshot(ctx context.Context) error
	CurrentUser(ctx context.Context) *models.User
	SaveCurrentUser(ctx context.Context, user *models.User) error
	AppendOrder(ctx context.Context, order models.Order) error
}

// API 结算用到的后端接口
type API interface {
	IsAuthenticated(ctx context.Context) bool
	Me(ctx context.Context) (*models.User, error)
	CreateOrder(ctx context.Context, payload models.CheckoutPayload) (*apiclient.OrderReceipt, error)
}

// Options 结算配置
type Options struct {
	Session         string
	AllowGuest      bool
	RedirectDelay   time.Duration
	Page            string
	SuccessRedirect string
	LoginRedirect   string
	PickupLocations []string
	Now             func() time.Time
}

// Page 结算页渲染模型
type Page struct {
	Summary         cart.Summary `json:"summary"`
	Prefill         Form         `json:"prefill"`
	PickupLocations []string     `json:"pickup_locations"`
	Status          Status       `json:"status"`
}

// Result 下单结果
type Result struct {
	OrderID  string       `json:"order_id"`
	Status   string       `json:"status"`
	Total    models.Money `json:"total"`
	Redirect string       `json:"redirect"`
}

// Service 结算编排服务
type Service struct {
	store       Store
	cart        *cart.Service
	api         API
	authz       *authz.Service
	notifier    *notify.Center
	queueClient *queue.Client
	validate    *validatorv10.Validate
	machine     *Machine
	opts        Options
	now         func() time.Time
}

// NewService 创建结算服务
func NewService(store Store, cartService *cart.Service, api API, authzService *authz.Service, notifier *notify.Center, queueClient *queue.Client, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:       store,
		cart:        cartService,
		api:         api,
		authz:       authzService,
		notifier:    notifier,
		queueClient: queueClient,
		validate:    NewValidator(),
		machine:     NewMachine(now),
		opts:        opts,
		now:         now,
	}
}

// Status 当前结算状态
func (s *Service) Status() Status {
	return s.machine.Status()
}

// Prepare 购物车页进入结算：校验购物车，必要时生成游客身份，写入待结算快照
func (s *Service) Prepare(ctx context.Context) (*models.CheckoutSnapshot, error) {
	entries := s.cart.Entries(ctx)
	if len(entries) == 0 {
		s.notifier.Warning(constants.MsgCartEmptyProceed)
		return nil, ErrCartEmpty
	}

	user := s.store.CurrentUser(ctx)
	if user == nil {
		if !s.opts.AllowGuest {
			s.notifier.Warning(constants.MsgLoginToContinue)
			s.notifier.Redirect(s.opts.LoginRedirect)
			return nil, ErrLoginRequired
		}
		user = models.NewGuestUser(s.now())
		if err := s.store.SaveCurrentUser(ctx, user); err != nil {
			return nil, err
		}
		logger.Infow("checkout_guest_identity_created", "user_id", user.ID.String())
	}

	// 购物车页总价始终包含配送运费
	summary := s.cart.Summarize(ctx, entries, "")
	snapshot := models.CheckoutSnapshot{
		Items:     entries,
		User:      user,
		Timestamp: s.now(),
		Total:     summary.Total,
	}
	if err := s.store.SaveCheckoutSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	s.machine.Reset()
	s.notifier.Redirect(s.opts.Page)
	logger.Infow("checkout_prepared", "items", len(entries), "total", summary.Total.String())
	return &snapshot, nil
}

// Load 结算页初始化：读取快照、解析身份与商品，返回汇总与表单预填
func (s *Service) Load(ctx context.Context, method string) (*Page, error) {
	s.machine.Reset()

	user := s.resolveUser(ctx)
	if user == nil {
		s.notifier.Warning(constants.MsgLoginToContinue)
		s.notifier.RedirectAfter(s.opts.LoginRedirect, s.opts.RedirectDelay)
		return nil, ErrLoginRequired
	}

	method = strings.ToLower(strings.TrimSpace(method))
	summary := s.cart.Summarize(ctx, s.entries(ctx), method)
	summary = summary.WithShipping(cart.CheckoutShippingFor(method, s.cart.ShippingFee()))
	if summary.HasUnresolved {
		s.notifier.Warning(constants.MsgProductsUnresolved)
	}
	return &Page{
		Summary:         summary,
		Prefill:         prefill(user),
		PickupLocations: append([]string{}, s.opts.PickupLocations...),
		Status:          s.machine.Status(),
	}, nil
}

// Submit 校验表单并提交订单
// 仅在后端确认后写入本地订单、清空购物车与快照；失败时保持购物车与快照不变
func (s *Service) Submit(ctx context.Context, input Form) (*Result, error) {
	if err := s.machine.BeginValidation(); err != nil {
		return nil, err
	}

	form := input.Normalize()
	if err := Validate(s.validate, form); err != nil {
		message := err.Error()
		var verr *ValidationError
		if errors.As(err, &verr) {
			message = verr.First()
		}
		s.notifier.Warning(message)
		_ = s.machine.Reject(message)
		return nil, err
	}

	entries := s.entries(ctx)
	if len(entries) == 0 {
		s.notifier.Warning(constants.MsgCartEmpty)
		_ = s.machine.Reject(constants.MsgCartEmpty)
		return nil, ErrCartEmpty
	}

	if err := s.machine.BeginSubmission(); err != nil {
		return nil, err
	}

	user := s.resolveUser(ctx)
	if err := s.checkIdentity(ctx, user); err != nil {
		return nil, s.fail(err, s.identityMessage(err), true)
	}

	summary := s.cart.Summarize(ctx, entries, form.DeliveryMethod)
	payload := BuildPayload(entries, form, summary.Total)

	receipt, err := s.api.CreateOrder(ctx, payload)
	if err != nil {
		logger.Warnw("checkout_submit_failed", "error", err, "items", len(entries))
		if errors.Is(err, apiclient.ErrReauthRequired) {
			return nil, s.fail(err, constants.MsgSessionExpired, true)
		}
		return nil, s.fail(err, submitFailureMessage(err), false)
	}

	orderID := strings.TrimSpace(receipt.ID)
	if orderID == "" {
		orderID = fmt.Sprintf("ORD-%d", s.now().UnixMilli())
	}
	order := models.Order{
		ID:             orderID,
		Date:           s.now(),
		Items:          len(entries),
		Total:          payload.Total,
		Status:         models.OrderStatusPending,
		DeliveryMethod: form.DeliveryMethod,
		CustomerName:   form.Name,
		CustomerPhone:  form.Phone,
		CustomerEmail:  form.Email,
		CartItems:      entries,
	}
	if status := strings.TrimSpace(receipt.Status); status != "" {
		order.Status = status
	}
	if err := s.store.AppendOrder(ctx, order); err != nil {
		logger.Warnw("checkout_order_backup_failed", "order_id", orderID, "error", err)
	}
	if err := s.cart.Clear(ctx); err != nil {
		logger.Warnw("checkout_cart_clear_failed", "order_id", orderID, "error", err)
	}
	if err := s.store.ClearCheckoutSnapshot(ctx); err != nil {
		logger.Warnw("checkout_snapshot_clear_failed", "order_id", orderID, "error", err)
	}
	_ = s.machine.Succeed(orderID)

	s.notifier.Success(constants.MsgOrderPlaced)
	s.notifier.RedirectAfter(s.opts.SuccessRedirect, s.opts.RedirectDelay)
	if err := s.queueClient.EnqueueOrderHistorySync(queue.OrderHistorySyncPayload{
		Session: s.opts.Session,
		OrderID: orderID,
	}); err != nil {
		logger.Warnw("checkout_history_sync_enqueue_failed", "order_id", orderID, "error", err)
	}
	logger.Infow("checkout_order_placed",
		"order_id", orderID,
		"delivery_method", form.DeliveryMethod,
		"total", order.Total.String(),
	)
	return &Result{OrderID: orderID, Status: order.Status, Total: order.Total, Redirect: s.opts.SuccessRedirect}, nil
}

// BuildPayload 构建下单请求体
func BuildPayload(entries []models.CartEntry, form Form, total models.Money) models.CheckoutPayload {
	items := make([]models.CheckoutPayloadItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, models.CheckoutPayloadItem{ProductID: entry.ProductID, Quantity: entry.Quantity})
	}
	payload := models.CheckoutPayload{
		Items:          items,
		DeliveryMethod: form.DeliveryMethod,
		PaymentMethod:  form.PaymentMethod,
		Total:          total,
	}
	if form.DeliveryMethod == models.DeliveryMethodPickup {
		payload.ShippingAddress = "Pickup at: " + form.PickupLocation
		if payload.PaymentMethod == "" {
			payload.PaymentMethod = models.PaymentMethodCOD
		}
	} else {
		payload.ShippingAddress = form.Address
	}
	return payload
}

func (s *Service) entries(ctx context.Context) []models.CartEntry {
	if snapshot := s.store.CheckoutSnapshot(ctx); snapshot != nil && len(snapshot.Items) > 0 {
		return models.NormalizeCart(snapshot.Items)
	}
	return s.cart.Entries(ctx)
}

// resolveUser 优先使用缓存用户，否则在持有令牌时调用认证接口
func (s *Service) resolveUser(ctx context.Context) *models.User {
	if user := s.store.CurrentUser(ctx); user != nil {
		return user
	}
	if !s.api.IsAuthenticated(ctx) {
		return nil
	}
	user, err := s.api.Me(ctx)
	if err != nil || user == nil {
		logger.Debugw("checkout_resolve_user_failed", "error", err)
		return nil
	}
	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		logger.Warnw("checkout_cache_user_failed", "error", err)
	}
	return user
}

func (s *Service) checkIdentity(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrLoginRequired
	}
	if !user.HasBackendID() {
		return ErrGuestLoginRequired
	}
	if !s.api.IsAuthenticated(ctx) {
		return ErrLoginRequired
	}
	if s.authz == nil {
		return nil
	}
	allowed, err := s.authz.EnforceUser(user, true, authz.ObjectCheckoutSubmit, http.MethodPost)
	if err != nil {
		logger.Warnw("checkout_authz_failed", "error", err)
		return ErrNotPermitted
	}
	if !allowed {
		return ErrNotPermitted
	}
	return nil
}

func (s *Service) identityMessage(err error) string {
	switch {
	case errors.Is(err, ErrGuestLoginRequired):
		return constants.MsgGuestLoginRequired
	case errors.Is(err, ErrNotPermitted):
		return constants.MsgOrderNotPermitted
	default:
		return constants.MsgLoginRequired
	}
}

// fail 提交失败：提示、回到 editing，必要时跳转登录
func (s *Service) fail(err error, message string, toLogin bool) error {
	s.notifier.Error(message)
	_ = s.machine.Fail(message)
	if toLogin {
		s.notifier.RedirectAfter(s.opts.LoginRedirect, s.opts.RedirectDelay)
	}
	return err
}

func submitFailureMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if detail := apiclient.DetailOf(err); detail != "" {
			return constants.MsgOrderFailedPrefix + detail
		}
		return constants.MsgOrderFailedPrefix + constants.MsgOrderFailedUnknown
	}
	return constants.MsgOrderProcessingFailed
}

func prefill(user *models.User) Form {
	form := Form{
		Name:  user.FullName(),
		Phone: user.Mobile,
		Email: user.Email,
	}
	if form.Name == "" {
		form.Name = user.Username
	}
	switch pref := strings.ToLower(strings.TrimSpace(user.PreferredPayment)); pref {
	case models.PaymentMethodGCash, models.PaymentMethodBank, models.PaymentMethodCOD:
		form.PaymentMethod = pref
	}
	return form
}
