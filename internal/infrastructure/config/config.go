package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/shipflow/backend/internal/domain/integration"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Shipping   ShippingConfig
	Stripe     StripeConfig
	Storefront StorefrontConfig
	Notify     NotifyConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. When disabled the address
// cache and webhook idempotency fall back to in-process stores.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
	MaxBodyBytes   int64
	// RateLimit is the number of requests a caller may make per RateWindow
	RateLimit  int
	RateWindow time.Duration
}

// ShippingConfig holds the rate-shopping provider and platform pool settings
type ShippingConfig struct {
	ProviderURL        string
	PlatformAPIKey     string
	PlatformCarrierIDs []string
	// ReservedCarriers are the carrier names that belong to the platform pool
	ReservedCarriers []string
	Markup           decimal.Decimal
	QuoteTTL         time.Duration
	AddressCacheTTL  time.Duration
	RequestTimeout   time.Duration
	LabelTimeout     time.Duration
	LogoBaseURL      string
	// WebhookSecret keys the HMAC the provider signs tracking callbacks with
	WebhookSecret string
}

// StripeConfig holds payment processor settings
type StripeConfig struct {
	SecretKey string
	Currency  string
	Timeout   time.Duration
}

// StoreEndpoint is the API location of one storefront type
type StoreEndpoint struct {
	BaseURL string
	Token   string
}

// StorefrontConfig holds storefront API endpoints keyed by store type
type StorefrontConfig struct {
	Timeout time.Duration
	// SupplierLinkBase prefixes the supplier id in links pushed to storefronts
	SupplierLinkBase string
	Stores           map[integration.StoreType]StoreEndpoint
}

// NotifyConfig holds the storefront notification retry job settings
type NotifyConfig struct {
	Enabled       bool
	RetrySchedule string
	BatchSize     int
	MaxAttempts   int
	JobTimeout    time.Duration
}

// TelemetryConfig holds OpenTelemetry export settings. Everything is off
// unless Enabled is set.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	ExportLogs        bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHIPFLOW_ prefix (e.g., SHIPFLOW_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shipflow")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SHIPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	markup := decimal.Zero
	if raw := v.GetString("shipping.markup"); raw != "" {
		m, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("shipping.markup: %w", err)
		}
		markup = m
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			MaxBodyBytes:   v.GetInt64("http.max_body_bytes"),
			RateLimit:      v.GetInt("http.rate_limit"),
			RateWindow:     v.GetDuration("http.rate_window"),
		},
		Shipping: ShippingConfig{
			ProviderURL:        v.GetString("shipping.provider_url"),
			PlatformAPIKey:     v.GetString("shipping.platform_api_key"),
			PlatformCarrierIDs: v.GetStringSlice("shipping.platform_carrier_ids"),
			ReservedCarriers:   v.GetStringSlice("shipping.reserved_carriers"),
			Markup:             markup,
			QuoteTTL:           v.GetDuration("shipping.quote_ttl"),
			AddressCacheTTL:    v.GetDuration("shipping.address_cache_ttl"),
			RequestTimeout:     v.GetDuration("shipping.request_timeout"),
			LabelTimeout:       v.GetDuration("shipping.label_timeout"),
			LogoBaseURL:        v.GetString("shipping.logo_base_url"),
			WebhookSecret:      v.GetString("shipping.webhook_secret"),
		},
		Stripe: StripeConfig{
			SecretKey: v.GetString("stripe.secret_key"),
			Currency:  v.GetString("stripe.currency"),
			Timeout:   v.GetDuration("stripe.timeout"),
		},
		Storefront: StorefrontConfig{
			Timeout:          v.GetDuration("storefront.timeout"),
			SupplierLinkBase: v.GetString("storefront.supplier_link_base"),
			Stores:           make(map[integration.StoreType]StoreEndpoint),
		},
		Notify: NotifyConfig{
			Enabled:       v.GetBool("notify.enabled"),
			RetrySchedule: v.GetString("notify.retry_schedule"),
			BatchSize:     v.GetInt("notify.batch_size"),
			MaxAttempts:   v.GetInt("notify.max_attempts"),
			JobTimeout:    v.GetDuration("notify.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportLogs:        v.GetBool("telemetry.export_logs"),
		},
	}

	for _, st := range integration.AllStoreTypes() {
		key := "storefront." + st.String()
		endpoint := StoreEndpoint{
			BaseURL: v.GetString(key + ".base_url"),
			Token:   v.GetString(key + ".token"),
		}
		if endpoint.BaseURL != "" {
			cfg.Storefront.Stores[st] = endpoint
		}
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shipflow"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shipflow"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// label purchase may take up to Shipping.LabelTimeout
		cfg.HTTP.WriteTimeout = 90 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 2 << 20
	}
	if cfg.HTTP.RateLimit == 0 {
		cfg.HTTP.RateLimit = 120
	}
	if cfg.HTTP.RateWindow == 0 {
		cfg.HTTP.RateWindow = time.Minute
	}
	if cfg.Shipping.ProviderURL == "" {
		cfg.Shipping.ProviderURL = "https://api.easypost.com/v2"
	}
	if len(cfg.Shipping.ReservedCarriers) == 0 {
		cfg.Shipping.ReservedCarriers = []string{"DropifiedUSPS", "DropifiedDHL"}
	}
	if cfg.Shipping.Markup.IsZero() {
		cfg.Shipping.Markup = decimal.RequireFromString("1.35")
	}
	if cfg.Shipping.QuoteTTL == 0 {
		cfg.Shipping.QuoteTTL = 24 * time.Hour
	}
	if cfg.Shipping.AddressCacheTTL == 0 {
		cfg.Shipping.AddressCacheTTL = 30 * 24 * time.Hour
	}
	if cfg.Shipping.RequestTimeout == 0 {
		cfg.Shipping.RequestTimeout = 20 * time.Second
	}
	if cfg.Shipping.LabelTimeout == 0 {
		cfg.Shipping.LabelTimeout = 60 * time.Second
	}
	if cfg.Shipping.LogoBaseURL == "" {
		cfg.Shipping.LogoBaseURL = "https://assets.shipflow.io/carriers"
	}
	if cfg.Stripe.Currency == "" {
		cfg.Stripe.Currency = "usd"
	}
	if cfg.Stripe.Timeout == 0 {
		cfg.Stripe.Timeout = 30 * time.Second
	}
	if cfg.Storefront.Timeout == 0 {
		cfg.Storefront.Timeout = 15 * time.Second
	}
	if cfg.Storefront.SupplierLinkBase == "" {
		cfg.Storefront.SupplierLinkBase = "https://app.shipflow.io/logistics/suppliers"
	}
	if cfg.Notify.RetrySchedule == "" {
		cfg.Notify.RetrySchedule = "@every 5m"
	}
	if cfg.Notify.BatchSize == 0 {
		cfg.Notify.BatchSize = 100
	}
	if cfg.Notify.MaxAttempts == 0 {
		cfg.Notify.MaxAttempts = 5
	}
	if cfg.Notify.JobTimeout == 0 {
		cfg.Notify.JobTimeout = 4 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Shipping.Markup.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("shipping.markup must be at least 1, got %s", c.Shipping.Markup)
	}
	if c.Shipping.PlatformAPIKey != "" && len(c.Shipping.ReservedCarriers) == 0 {
		return fmt.Errorf("shipping.reserved_carriers is required when shipping.platform_api_key is set")
	}
	timeouts := map[string]time.Duration{
		"shipping.quote_ttl":       c.Shipping.QuoteTTL,
		"shipping.request_timeout": c.Shipping.RequestTimeout,
		"shipping.label_timeout":   c.Shipping.LabelTimeout,
		"stripe.timeout":           c.Stripe.Timeout,
		"storefront.timeout":       c.Storefront.Timeout,
		"notify.job_timeout":       c.Notify.JobTimeout,
	}
	for key, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.Notify.MaxAttempts < 0 || c.Notify.BatchSize < 0 {
		return fmt.Errorf("notify.max_attempts and notify.batch_size cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %g", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("stripe.secret_key is required in production")
		}
		if c.Shipping.WebhookSecret == "" {
			return fmt.Errorf("shipping.webhook_secret is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
