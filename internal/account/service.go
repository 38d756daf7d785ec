package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/altruria/storefront/internal/apiclient"
	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"
	"github.com/altruria/storefront/internal/notify"
	"github.com/altruria/storefront/internal/store"

	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	ErrValidation        = errors.New("account form invalid")
	ErrLoginRequired     = errors.New("login required")
	ErrEmailExists       = store.ErrEmailExists
	ErrLocalUserNotFound = errors.New("local user not found")
)

// 订单历史来源
const (
	HistorySourceRemote = "remote"
	HistorySourceLocal  = "local"
)

// Store 账号相关的本地持久化契约
type Store interface {
	CurrentUser(ctx context.Context) *models.User
	SaveCurrentUser(ctx context.Context, user *models.User) error
	ClearCurrentUser(ctx context.Context) error
	ClearCart(ctx context.Context) error
	Orders(ctx context.Context) []models.Order
	SaveOrders(ctx context.Context, orders []models.Order) error
	FindLocalUserByEmail(ctx context.Context, email string) *models.User
	CreateLocalUser(ctx context.Context, user *models.User) error
}

// API 账号相关的后端接口
type API interface {
	IsAuthenticated(ctx context.Context) bool
	Login(ctx context.Context, input apiclient.LoginInput) (models.AuthTokens, error)
	Register(ctx context.Context, input apiclient.RegisterInput) (*models.User, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateMe(ctx context.Context, input apiclient.ProfileUpdate) (*models.User, error)
	ListMyOrders(ctx context.Context) ([]models.RemoteOrder, error)
	ClearTokens(ctx context.Context)
}

// Options 账号服务配置
type Options struct {
	HomeRedirect  string
	LoginRedirect string
	RedirectDelay time.Duration
	Now           func() time.Time
}

// History 订单历史视图
type History struct {
	Source string               `json:"source"`
	Remote []models.RemoteOrder `json:"remote,omitempty"`
	Local  []models.Order       `json:"local,omitempty"`
}

// Count 订单数量
func (h History) Count() int {
	if h.Source == HistorySourceLocal {
		return len(h.Local)
	}
	return len(h.Remote)
}

// SyncResult 后台同步结果
type SyncResult struct {
	Remote   int  `json:"remote"`
	Local    int  `json:"local"`
	Recorded bool `json:"recorded"`
	Skipped  bool `json:"skipped"`
	Updated  int  `json:"updated"`
	Added    int  `json:"added"`
}

// Service 账号服务
type Service struct {
	store    Store
	api      API
	notifier *notify.Center
	validate *validatorv10.Validate
	opts     Options
	now      func() time.Time
}

// NewService 创建账号服务
func NewService(store Store, api API, notifier *notify.Center, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		api:      api,
		notifier: notifier,
		validate: newValidator(),
		opts:     opts,
		now:      now,
	}
}

// Login 用户名密码登录：换取令牌后拉取并缓存当前用户
func (s *Service) Login(ctx context.Context, input LoginForm) (*models.User, error) {
	form := input.normalize()
	if err := s.checkForm(form); err != nil {
		return nil, err
	}
	if _, err := s.api.Login(ctx, apiclient.LoginInput{Username: form.Username, Password: form.Password}); err != nil {
		logger.Warnw("account_login_failed", "username", form.Username, "error", err)
		s.notifier.Error(constants.MsgLoginFailedPrefix + failureDetail(err))
		return nil, err
	}
	user, err := s.api.Me(ctx)
	if err != nil {
		logger.Warnw("account_login_profile_failed", "username", form.Username, "error", err)
		s.api.ClearTokens(ctx)
		s.notifier.Error(constants.MsgLoginFailedPrefix + failureDetail(err))
		return nil, err
	}
	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		return nil, err
	}
	logger.Infow("account_logged_in", "user_id", user.ID.String())
	s.notifier.Success(constants.MsgLoggedIn)
	s.notifier.RedirectAfter(s.opts.HomeRedirect, s.opts.RedirectDelay)
	return user, nil
}

// Register 注册后端账号，成功后跳转登录页
func (s *Service) Register(ctx context.Context, input RegisterForm) (*models.User, error) {
	form := input.normalize()
	if err := s.checkForm(form); err != nil {
		return nil, err
	}
	user, err := s.api.Register(ctx, apiclient.RegisterInput{
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
		FirstName:       form.FirstName,
		LastName:        form.LastName,
		Mobile:          form.Mobile,
		Address:         form.Address,
	})
	if err != nil {
		logger.Warnw("account_register_failed", "username", form.Username, "error", err)
		s.notifier.Error(constants.MsgRequestFailedPrefix + failureDetail(err))
		return nil, err
	}
	logger.Infow("account_registered", "username", form.Username)
	s.notifier.Success(constants.MsgRegistered)
	s.notifier.RedirectAfter(s.opts.LoginRedirect, s.opts.RedirectDelay)
	return user, nil
}

// Logout 清除令牌、当前用户与购物车
func (s *Service) Logout(ctx context.Context) error {
	s.api.ClearTokens(ctx)
	if err := s.store.ClearCurrentUser(ctx); err != nil {
		return err
	}
	if err := s.store.ClearCart(ctx); err != nil {
		return err
	}
	logger.Infow("account_logged_out")
	s.notifier.Success(constants.MsgLoggedOut)
	s.notifier.RedirectAfter(s.opts.LoginRedirect, s.opts.RedirectDelay)
	return nil
}

// Profile 读取后端资料并刷新缓存用户
func (s *Service) Profile(ctx context.Context) (*models.User, error) {
	if !s.api.IsAuthenticated(ctx) {
		s.requireLogin(constants.MsgLoginToViewProfile)
		return nil, ErrLoginRequired
	}
	user, err := s.api.Me(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrReauthRequired) || errors.Is(err, apiclient.ErrUnauthorized) {
			s.requireLogin(constants.MsgSessionExpired)
			return nil, err
		}
		s.notifier.Error(constants.MsgRequestFailedPrefix + failureDetail(err))
		return nil, err
	}
	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		logger.Warnw("account_cache_user_failed", "error", err)
	}
	return user, nil
}

// UpdateProfile 更新资料：全名拆分为名与姓
func (s *Service) UpdateProfile(ctx context.Context, input ProfileForm) (*models.User, error) {
	form := input.normalize()
	if err := s.checkForm(form); err != nil {
		return nil, err
	}
	if !s.api.IsAuthenticated(ctx) {
		s.requireLogin(constants.MsgLoginToViewProfile)
		return nil, ErrLoginRequired
	}
	firstName, lastName := models.SplitFullName(form.FullName)
	user, err := s.api.UpdateMe(ctx, apiclient.ProfileUpdate{
		FirstName:        firstName,
		LastName:         lastName,
		Email:            form.Email,
		Mobile:           form.Phone,
		Address:          form.Address,
		PreferredPayment: form.PreferredPayment,
	})
	if err != nil {
		logger.Warnw("account_profile_update_failed", "error", err)
		if errors.Is(err, apiclient.ErrReauthRequired) {
			s.requireLogin(constants.MsgSessionExpired)
			return nil, err
		}
		s.notifier.Error(constants.MsgRequestFailedPrefix + failureDetail(err))
		return nil, err
	}
	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		logger.Warnw("account_cache_user_failed", "error", err)
	}
	logger.Infow("account_profile_updated", "user_id", user.ID.String())
	s.notifier.Success(constants.MsgProfileUpdated)
	return user, nil
}

// OrderHistory 订单历史：接口不存在时为空，其他失败时回退本地备份
func (s *Service) OrderHistory(ctx context.Context) (History, error) {
	if !s.api.IsAuthenticated(ctx) {
		s.requireLogin(constants.MsgLoginToViewProfile)
		return History{}, ErrLoginRequired
	}
	orders, err := s.api.ListMyOrders(ctx)
	switch {
	case err == nil:
		return History{Source: HistorySourceRemote, Remote: orders}, nil
	case errors.Is(err, apiclient.ErrNotFound):
		return History{Source: HistorySourceRemote, Remote: []models.RemoteOrder{}}, nil
	case errors.Is(err, apiclient.ErrReauthRequired):
		s.requireLogin(constants.MsgSessionExpired)
		return History{}, err
	}
	logger.Warnw("account_order_history_fallback", "error", err)
	s.notifier.Warning(constants.MsgOrderHistoryFromBackup)
	return History{Source: HistorySourceLocal, Local: s.store.Orders(ctx)}, nil
}

// SyncOrderHistory 后台同步：以后端订单刷新本地订单备份，并核对 orderID 是否已被记录
// orderID 为空时仅刷新备份；返回错误时由队列重试
func (s *Service) SyncOrderHistory(ctx context.Context, orderID string) (SyncResult, error) {
	local := s.store.Orders(ctx)
	result := SyncResult{Local: len(local)}
	if !s.api.IsAuthenticated(ctx) {
		logger.Debugw("order_history_sync_skipped", "order_id", orderID, "reason", "unauthenticated")
		result.Skipped = true
		return result, nil
	}
	orders, err := s.api.ListMyOrders(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			result.Skipped = true
			return result, nil
		}
		return result, err
	}
	result.Remote = len(orders)
	for _, order := range orders {
		if orderID != "" && order.ID.String() == orderID {
			result.Recorded = true
			break
		}
	}

	merged, updated, added := mergeRemoteOrders(local, orders)
	result.Updated, result.Added = updated, added
	if updated > 0 || added > 0 {
		if err := s.store.SaveOrders(ctx, merged); err != nil {
			return result, err
		}
		result.Local = len(merged)
	}
	if user, err := s.api.Me(ctx); err == nil && user != nil {
		if err := s.store.SaveCurrentUser(ctx, user); err != nil {
			logger.Warnw("order_history_sync_cache_user_failed", "error", err)
		}
	}
	logger.Infow("order_history_synced",
		"order_id", orderID,
		"remote", result.Remote,
		"local", result.Local,
		"updated", result.Updated,
		"added", result.Added,
		"recorded", result.Recorded,
	)
	return result, nil
}

// mergeRemoteOrders 后端记录覆盖同 ID 的本地备份的状态与金额，缺失的后端订单追加到末尾
// 本地兜底订单（ORD-）保持不变
func mergeRemoteOrders(local []models.Order, remote []models.RemoteOrder) ([]models.Order, int, int) {
	merged := append([]models.Order{}, local...)
	index := make(map[string]int, len(merged))
	for i, order := range merged {
		index[order.ID] = i
	}
	updated, added := 0, 0
	for _, ro := range remote {
		id := ro.ID.String()
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			if refreshOrder(&merged[i], ro) {
				updated++
			}
			continue
		}
		index[id] = len(merged)
		merged = append(merged, orderFromRemote(ro))
		added++
	}
	return merged, updated, added
}

func refreshOrder(order *models.Order, ro models.RemoteOrder) bool {
	changed := false
	if status := strings.TrimSpace(ro.Status); status != "" && status != order.Status {
		order.Status = status
		changed = true
	}
	if !ro.Total.IsZero() && !ro.Total.Equal(order.Total.Decimal) {
		order.Total = ro.Total
		changed = true
	}
	if order.DeliveryMethod == "" && ro.DeliveryMethod != "" {
		order.DeliveryMethod = ro.DeliveryMethod
		changed = true
	}
	return changed
}

func orderFromRemote(ro models.RemoteOrder) models.Order {
	order := models.Order{
		ID:             ro.ID.String(),
		Date:           ro.CreatedAt,
		Total:          ro.Total,
		Status:         ro.Status,
		DeliveryMethod: ro.DeliveryMethod,
		CartItems:      []models.CartEntry{},
	}
	for _, item := range ro.Items {
		order.Items += item.Quantity
		if item.Product != nil && item.Product.ID > 0 && item.Quantity > 0 {
			order.CartItems = append(order.CartItems, models.CartEntry{ProductID: item.Product.ID, Quantity: item.Quantity})
		}
	}
	return order
}

// SignupLocal 本地演示注册（不经过后端），邮箱唯一
func (s *Service) SignupLocal(ctx context.Context, input SignupForm) (*models.User, error) {
	form := input.normalize()
	if err := s.checkForm(form); err != nil {
		return nil, err
	}
	user := models.NewLocalUser(s.now(), form.FirstName, form.LastName, form.Email, form.Mobile, form.Address)
	if err := s.store.CreateLocalUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.notifier.Error(constants.MsgEmailExists)
		}
		return nil, err
	}
	logger.Infow("account_local_user_created", "user_id", user.ID.String())
	return user, nil
}

// FindLocalUser 按邮箱查找演示用户
func (s *Service) FindLocalUser(ctx context.Context, email string) (*models.User, error) {
	user := s.store.FindLocalUserByEmail(ctx, strings.TrimSpace(email))
	if user == nil {
		return nil, ErrLocalUserNotFound
	}
	return user, nil
}

// LoginLocal 以演示用户身份进入（仅可浏览，不能下单）
func (s *Service) LoginLocal(ctx context.Context, email string) (*models.User, error) {
	user, err := s.FindLocalUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		return nil, err
	}
	s.notifier.Success(constants.MsgLoggedIn)
	s.notifier.RedirectAfter(s.opts.HomeRedirect, s.opts.RedirectDelay)
	return user, nil
}

func (s *Service) checkForm(form interface{}) error {
	err := check(s.validate, form)
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		for _, message := range verr.Messages {
			s.notifier.Error(message)
		}
	}
	return err
}

func (s *Service) requireLogin(message string) {
	s.notifier.Warning(message)
	s.notifier.RedirectAfter(s.opts.LoginRedirect, s.opts.RedirectDelay)
}

// failureDetail 后端错误详情，缺失时为状态文本
func failureDetail(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	if errors.Is(err, apiclient.ErrNetwork) {
		return constants.MsgNetworkError
	}
	return err.Error()
}
