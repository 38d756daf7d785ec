package provider

import (
	"time"

	"github.com/altruria/storefront/internal/account"
	"github.com/altruria/storefront/internal/apiclient"
	"github.com/altruria/storefront/internal/authz"
	"github.com/altruria/storefront/internal/cache"
	"github.com/altruria/storefront/internal/cart"
	"github.com/altruria/storefront/internal/catalog"
	"github.com/altruria/storefront/internal/checkout"
	"github.com/altruria/storefront/internal/config"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/models"
	"github.com/altruria/storefront/internal/notify"
	"github.com/altruria/storefront/internal/queue"
	"github.com/altruria/storefront/internal/store"

	"gorm.io/gorm"
)

// Container 依赖注入容器，替代全局单例
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	DB          *gorm.DB

	// Infrastructure
	Store    *store.LocalStore
	API      *apiclient.Client
	Notifier *notify.Center

	// Services
	AuthzService    *authz.Service
	Resolver        *catalog.Resolver
	CartService     *cart.Service
	CheckoutService *checkout.Service
	AccountService  *account.Service
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	backend, err := store.NewBackend(cfg.Store)
	if err != nil {
		logger.Errorw("provider_init_store_failed", "driver", cfg.Store.Driver, "error", err)
		panic(err)
	}

	c, err := NewContainerWithBackend(cfg, backend)
	if err != nil {
		logger.Errorw("provider_init_container_failed", "error", err)
		panic(err)
	}
	return c
}

// NewContainerWithBackend 使用指定存储后端初始化容器
func NewContainerWithBackend(cfg *config.Config, backend store.Backend) (*Container, error) {
	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	if gormBackend, ok := backend.(*store.GormBackend); ok {
		c.DB = gormBackend.DB()
	}

	// 1. 初始化基础设施
	c.initInfrastructure(backend)

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initInfrastructure(backend store.Backend) {
	c.Store = store.New(backend)
	c.Notifier = notify.NewCenter(0, nil)
	c.API = apiclient.New(apiclient.Options{
		BaseURL:      c.Config.API.ResolveBaseURL(),
		Timeout:      c.Config.API.Timeout(),
		RefreshAfter: c.Config.Auth.RefreshAfter(),
	}, c.Store)
	logger.Infow("provider_api_base_resolved", "base_url", c.API.BaseURL())
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}

	cartCfg := c.Config.Cart
	c.Resolver = catalog.NewResolver(c.API, catalog.Options{
		Concurrency:   c.Config.API.ResolveConcurrency,
		FallbackImage: cartCfg.FallbackImage,
		CacheTTL:      time.Duration(c.Config.Cache.ProductTTLSeconds) * time.Second,
	})
	c.CartService = cart.NewService(c.Store, c.Resolver, c.Notifier, cart.Options{
		ShippingFee:   shippingFee(cartCfg.ShippingFee),
		MaxQuantity:   cartCfg.MaxQuantity,
		FallbackImage: cartCfg.FallbackImage,
	})

	checkoutCfg := c.Config.Checkout
	c.CheckoutService = checkout.NewService(c.Store, c.CartService, c.API, c.AuthzService, c.Notifier, c.QueueClient, checkout.Options{
		Session:         c.Config.Store.Session,
		AllowGuest:      checkoutCfg.AllowGuest,
		RedirectDelay:   checkoutCfg.RedirectDelay(),
		Page:            checkoutCfg.Page,
		SuccessRedirect: checkoutCfg.SuccessRedirect,
		LoginRedirect:   checkoutCfg.LoginRedirect,
		PickupLocations: checkoutCfg.PickupLocations,
	})
	c.AccountService = account.NewService(c.Store, c.API, c.Notifier, account.Options{
		HomeRedirect:  checkoutCfg.SuccessRedirect,
		LoginRedirect: checkoutCfg.LoginRedirect,
		RedirectDelay: checkoutCfg.RedirectDelay(),
	})
	return nil
}

// shippingFee 解析配置中的运费，非法时回退默认值
func shippingFee(raw string) models.Money {
	fee, err := models.ParseMoney(raw)
	if err != nil || fee.IsNegative() {
		logger.Warnw("provider_invalid_shipping_fee", "value", raw, "error", err)
		return models.NewMoneyFromInt(80)
	}
	return fee
}
