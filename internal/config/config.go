package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/altruria/storefront/internal/logger"

	"github.com/spf13/viper"
)

// DefaultAPIBaseURL 本地开发默认后端地址
const DefaultAPIBaseURL = "http://localhost:8000/api"

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	API      APIConfig      `mapstructure:"api"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cart     CartConfig     `mapstructure:"cart"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// APIConfig 后端 API 配置
// base_url 为完整 API 路径（运行时覆盖），base 为站点根地址（自动补 /api）
type APIConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	Base               string `mapstructure:"base"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	ResolveConcurrency int    `mapstructure:"resolve_concurrency"`
}

// ResolveBaseURL 按优先级解析后端 API 地址，首个非空值生效
func (c APIConfig) ResolveBaseURL() string {
	if override := strings.TrimSpace(c.BaseURL); override != "" {
		return strings.TrimRight(override, "/")
	}
	if base := strings.TrimRight(strings.TrimSpace(c.Base), "/"); base != "" {
		if strings.HasSuffix(base, "/api") {
			return base
		}
		return base + "/api"
	}
	return DefaultAPIBaseURL
}

// Timeout 单次请求超时
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorePoolConfig 本地存储连接池配置
type StorePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// StoreConfig 本地持久化配置
type StoreConfig struct {
	Driver  string          `mapstructure:"driver"` // sqlite / postgres / redis / memory
	DSN     string          `mapstructure:"dsn"`
	Session string          `mapstructure:"session"`
	Pool    StorePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled             bool           `mapstructure:"enabled"`
	Host                string         `mapstructure:"host"`
	Port                int            `mapstructure:"port"`
	Password            string         `mapstructure:"password"`
	DB                  int            `mapstructure:"db"`
	Concurrency         int            `mapstructure:"concurrency"`
	Queues              map[string]int `mapstructure:"queues"`
	SyncIntervalSeconds int            `mapstructure:"sync_interval_seconds"` // worker 定时同步订单历史，0 表示关闭
}

// SyncInterval 定时同步间隔
func (c QueueConfig) SyncInterval() time.Duration {
	if c.SyncIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// CacheConfig 商品缓存配置
type CacheConfig struct {
	ProductTTLSeconds int `mapstructure:"product_ttl_seconds"`
}

// AuthConfig 令牌配置
type AuthConfig struct {
	RefreshAfterMinutes int `mapstructure:"refresh_after_minutes"`
}

// RefreshAfter 访问令牌的启发式过期窗口
func (c AuthConfig) RefreshAfter() time.Duration {
	if c.RefreshAfterMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.RefreshAfterMinutes) * time.Minute
}

// CartConfig 购物车配置
type CartConfig struct {
	ShippingFee   string `mapstructure:"shipping_fee"`
	MaxQuantity   int    `mapstructure:"max_quantity"`
	FallbackImage string `mapstructure:"fallback_image"`
}

// CheckoutConfig 结算配置
type CheckoutConfig struct {
	RedirectDelayMS int      `mapstructure:"redirect_delay_ms"`
	Page            string   `mapstructure:"page"`
	SuccessRedirect string   `mapstructure:"success_redirect"`
	LoginRedirect   string   `mapstructure:"login_redirect"`
	AllowGuest      bool     `mapstructure:"allow_guest"`
	PickupLocations []string `mapstructure:"pickup_locations"`
}

// RedirectDelay 成功后跳转延迟
func (c CheckoutConfig) RedirectDelay() time.Duration {
	if c.RedirectDelayMS < 0 {
		return 0
	}
	return time.Duration(c.RedirectDelayMS) * time.Millisecond
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// SetDefaults 注册默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "storefront.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.base", "")
	v.SetDefault("api.timeout_seconds", 15)
	v.SetDefault("api.resolve_concurrency", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "./data/storefront.db")
	v.SetDefault("store.session", "default")
	v.SetDefault("store.pool.max_open_conns", 1)
	v.SetDefault("store.pool.max_idle_conns", 1)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sf")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 2)
	v.SetDefault("queue.queues", map[string]int{"default": 1})
	v.SetDefault("queue.sync_interval_seconds", 0)
	v.SetDefault("cache.product_ttl_seconds", 300)
	v.SetDefault("auth.refresh_after_minutes", 10)
	v.SetDefault("cart.shipping_fee", "80.00")
	v.SetDefault("cart.max_quantity", 100)
	v.SetDefault("cart.fallback_image", "../images/default-product.png")
	v.SetDefault("checkout.redirect_delay_ms", 2000)
	v.SetDefault("checkout.page", "/pages/checkout.html")
	v.SetDefault("checkout.success_redirect", "/index.html")
	v.SetDefault("checkout.login_redirect", "/pages/login.html")
	v.SetDefault("checkout.allow_guest", true)
	v.SetDefault("checkout.pickup_locations", []string{})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
}

// Load 从 config.yml 加载配置
func Load() *Config {
	cfg, err := LoadWith(viper.GetViper())
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// LoadWith 使用指定 viper 实例加载配置
func LoadWith(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持，例如 api.base_url -> API_BASE_URL
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
