package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/altruria/storefront/internal/authz"
	"github.com/altruria/storefront/internal/cache"
	"github.com/altruria/storefront/internal/config"
	publichandlers "github.com/altruria/storefront/internal/http/handlers/public"
	"github.com/altruria/storefront/internal/http/response"
	"github.com/altruria/storefront/internal/logger"
	"github.com/altruria/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "storefront"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 商品
		apiV1.GET("/products", publicHandler.ListProducts)
		apiV1.GET("/products/:product_id", publicHandler.GetProduct)

		// 购物车
		cartGroup := apiV1.Group("/cart")
		{
			cartGroup.GET("", publicHandler.GetCart)
			cartGroup.POST("/items", publicHandler.AddCartItem)
			cartGroup.POST("/items/:product_id/increment", publicHandler.IncrementCartItem)
			cartGroup.POST("/items/:product_id/decrement", publicHandler.DecrementCartItem)
			cartGroup.DELETE("/items/:product_id", publicHandler.RemoveCartItem)
		}

		// 结算
		checkoutGroup := apiV1.Group("/checkout")
		{
			checkoutGroup.POST("/prepare", publicHandler.PrepareCheckout)
			checkoutGroup.GET("", publicHandler.GetCheckout)
			checkoutGroup.GET("/state", publicHandler.GetCheckoutState)
			checkoutGroup.POST("/submit", publicHandler.SubmitCheckout)
		}

		// 用户认证
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), publicHandler.UserLogin)
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/logout", publicHandler.UserLogout)
			auth.POST("/local/signup", publicHandler.LocalSignup)
			auth.POST("/local/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.LocalLogin)
		}

		// 会员接口
		me := apiV1.Group("/me")
		me.Use(IdentityAuthzMiddleware(c))
		{
			me.GET("", publicHandler.GetProfile)
			me.PUT("", publicHandler.UpdateProfile)
			me.GET("/orders", publicHandler.GetOrderHistory)
		}

		apiV1.GET("/notifications", publicHandler.GetNotifications)
		apiV1.GET("/authz/me", func(ctx *gin.Context) {
			role := authz.RoleFor(c.Store.CurrentUser(ctx.Request.Context()), c.API.IsAuthenticated(ctx.Request.Context()))
			response.Success(ctx, gin.H{
				"role":        role,
				"permissions": buildPermissionCatalog(r, c.AuthzService, role),
			})
		})
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// buildPermissionCatalog 汇总 /api/v1 路由并标注当前角色是否可访问
func buildPermissionCatalog(engine *gin.Engine, authzService *authz.Service, role string) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		if strings.HasPrefix(object, "/authz") {
			continue
		}
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}

		allowed, err := authzService.Enforce(role, object, method)
		if err != nil {
			logger.Warnw("permission_catalog_enforce_failed", "role", role, "permission", permission, "error", err)
		}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
			Allowed:    allowed,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if segments[0] == "me" {
		return "account"
	}
	return segments[0]
}
