package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Commerce  CommerceConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// CommerceConfig holds the hosted commerce platform connection settings
type CommerceConfig struct {
	BaseURL        string // Store API base URL, e.g. https://commerce.example.com
	PublishableKey string // Publishable API key sent on every store request
	Timeout        time.Duration
}

// StoreConfig holds storefront business settings
type StoreConfig struct {
	PrimaryCurrency        string          // lowercase ISO code the region resolver prefers
	TaxRate                decimal.Decimal // inclusive VAT rate, e.g. 0.081 for Swiss 8.1%
	FreeShippingThreshold  decimal.Decimal // subtotal at which standard shipping is free
	StandardShippingAmount decimal.Decimal // fallback standard tier price
	ExpressShippingAmount  decimal.Decimal // fallback express tier price
	PaymentProvider        string          // default payment provider ID
}

// DatabaseConfig holds session state database settings
type DatabaseConfig struct {
	Driver          string // sqlite or postgres
	Path            string // sqlite file path
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// RedisConfig holds Redis connection settings for the settings cache
type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	SettingsTTL time.Duration // 0 means cache entries never expire
}

// AuthConfig holds customer session token settings
type AuthConfig struct {
	Secret          string
	TokenExpiration time.Duration
	Issuer          string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g. STOREFRONT_COMMERCE_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, defaults and env vars apply
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Commerce: CommerceConfig{
			BaseURL:        v.GetString("commerce.base_url"),
			PublishableKey: v.GetString("commerce.publishable_key"),
			Timeout:        v.GetDuration("commerce.timeout"),
		},
		Store: StoreConfig{
			PrimaryCurrency: v.GetString("store.primary_currency"),
			PaymentProvider: v.GetString("store.payment_provider"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:        v.GetString("redis.host"),
			Port:        v.GetInt("redis.port"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			SettingsTTL: v.GetDuration("redis.settings_ttl"),
		},
		Auth: AuthConfig{
			Secret:          v.GetString("auth.secret"),
			TokenExpiration: v.GetDuration("auth.token_expiration"),
			Issuer:          v.GetString("auth.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	// Decimal business values go through strings so config keeps exact amounts
	var err error
	if cfg.Store.TaxRate, err = decimalSetting(v, "store.tax_rate", "0.081"); err != nil {
		return nil, err
	}
	if cfg.Store.FreeShippingThreshold, err = decimalSetting(v, "store.free_shipping_threshold", "69"); err != nil {
		return nil, err
	}
	if cfg.Store.StandardShippingAmount, err = decimalSetting(v, "store.standard_shipping_amount", "7.90"); err != nil {
		return nil, err
	}
	if cfg.Store.ExpressShippingAmount, err = decimalSetting(v, "store.express_shipping_amount", "14.90"); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decimalSetting reads a decimal config value with a string default
func decimalSetting(v *viper.Viper, key, fallback string) (decimal.Decimal, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s: %w", key, err)
	}
	return d, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-cart"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Commerce.Timeout == 0 {
		cfg.Commerce.Timeout = 15 * time.Second
	}
	if cfg.Store.PrimaryCurrency == "" {
		cfg.Store.PrimaryCurrency = "chf"
	}
	if cfg.Store.PaymentProvider == "" {
		cfg.Store.PaymentProvider = "pp_stripe_stripe"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "storefront.db"
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
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Auth.TokenExpiration == 0 {
		cfg.Auth.TokenExpiration = 24 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "storefront-cart"
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
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	// CORS origins intentionally have no wildcard default; an empty list
	// means cross-origin requests stay blocked until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Session-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storefront-cart"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.Driver != DriverSQLite && c.Database.Driver != DriverPostgres {
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Store.TaxRate.IsNegative() || c.Store.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("store.tax_rate must be in [0, 1), got %s", c.Store.TaxRate)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.Commerce.BaseURL == "" {
			return fmt.Errorf("commerce.base_url is required in production")
		}
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth.secret is required in production")
		}
		if len(c.Auth.Secret) < 32 {
			return fmt.Errorf("auth.secret must be at least 32 characters in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// PostgresDSN returns the postgres connection string with escaped values
func (d *DatabaseConfig) PostgresDSN() string {
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

// RedisAddr returns the host:port address for the Redis client
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
