package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all storefront configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	OTel       OTelConfig       `mapstructure:"otel"`
	API        APIConfig        `mapstructure:"api"`
	Session    SessionConfig    `mapstructure:"session"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Storefront StorefrontConfig `mapstructure:"storefront"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// Origins allowed to call the storefront from a browser
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig holds Redis connection settings. When disabled, sessions and
// caches are kept in process memory.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServiceName   string `mapstructure:"service_name"`
	CollectorAddr string `mapstructure:"collector_addr"`
}

// APIConfig holds the remote Events, Reservations and Auth API endpoints
type APIConfig struct {
	EventsURL        string        `mapstructure:"events_url"`
	ReservationsURL  string        `mapstructure:"reservations_url"`
	AuthURL          string        `mapstructure:"auth_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	BreakerThreshold int64         `mapstructure:"breaker_threshold"`
}

// SessionConfig controls buyer sessions
type SessionConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie"`
	Secure     bool          `mapstructure:"secure"`
}

// CatalogConfig controls ticket catalog caching
type CatalogConfig struct {
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// StorefrontConfig holds presentation and wizard settings
type StorefrontConfig struct {
	Locale        string        `mapstructure:"locale"`
	WizardIdleTTL       time.Duration `mapstructure:"wizard_idle_ttl"`
	WizardSweepInterval time.Duration `mapstructure:"wizard_sweep_interval"`
	AuthLoginPath       string        `mapstructure:"auth_login_path"`
}

// RateLimitConfig throttles booking mutations per session
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	Burst             int  `mapstructure:"burst"`
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// .env is optional, environment variables are enough
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific .env file
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "ticket-storefront")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("APP_LOG_LEVEL", "info")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "ticket-storefront")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")

	v.SetDefault("API_EVENTS_URL", "http://localhost:3000/api")
	v.SetDefault("API_RESERVATIONS_URL", "http://localhost:3000/api")
	v.SetDefault("API_AUTH_URL", "http://localhost:3000/api")
	v.SetDefault("API_TIMEOUT", "15s")
	v.SetDefault("API_BREAKER_THRESHOLD", 5)

	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE", "storefront_session")
	v.SetDefault("SESSION_SECURE", false)

	v.SetDefault("CATALOG_CACHE_TTL", "30s")
	v.SetDefault("CATALOG_MAX_RETRIES", 2)

	v.SetDefault("STOREFRONT_LOCALE", "fr-FR")
	v.SetDefault("STOREFRONT_WIZARD_IDLE_TTL", "30m")
	v.SetDefault("STOREFRONT_WIZARD_SWEEP_INTERVAL", "1m")
	v.SetDefault("STOREFRONT_AUTH_LOGIN_PATH", "/login")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
}

func bindConfig(v *viper.Viper, cfg *Config) {
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")
	cfg.App.LogLevel = v.GetString("APP_LOG_LEVEL")

	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.AllowedOrigins = splitList(v.GetString("SERVER_ALLOWED_ORIGINS"))

	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")

	cfg.API.EventsURL = strings.TrimRight(v.GetString("API_EVENTS_URL"), "/")
	cfg.API.ReservationsURL = strings.TrimRight(v.GetString("API_RESERVATIONS_URL"), "/")
	cfg.API.AuthURL = strings.TrimRight(v.GetString("API_AUTH_URL"), "/")
	cfg.API.Timeout = v.GetDuration("API_TIMEOUT")
	cfg.API.BreakerThreshold = v.GetInt64("API_BREAKER_THRESHOLD")

	cfg.Session.TTL = v.GetDuration("SESSION_TTL")
	cfg.Session.CookieName = v.GetString("SESSION_COOKIE")
	cfg.Session.Secure = v.GetBool("SESSION_SECURE")

	cfg.Catalog.CacheTTL = v.GetDuration("CATALOG_CACHE_TTL")
	cfg.Catalog.MaxRetries = v.GetInt("CATALOG_MAX_RETRIES")

	cfg.Storefront.Locale = v.GetString("STOREFRONT_LOCALE")
	cfg.Storefront.WizardIdleTTL = v.GetDuration("STOREFRONT_WIZARD_IDLE_TTL")
	cfg.Storefront.WizardSweepInterval = v.GetDuration("STOREFRONT_WIZARD_SWEEP_INTERVAL")
	cfg.Storefront.AuthLoginPath = v.GetString("STOREFRONT_AUTH_LOGIN_PATH")

	cfg.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	cfg.RateLimit.RequestsPerSecond = v.GetInt("RATE_LIMIT_RPS")
	cfg.RateLimit.Burst = v.GetInt("RATE_LIMIT_BURST")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	for key, raw := range map[string]string{
		"API_EVENTS_URL":       c.API.EventsURL,
		"API_RESERVATIONS_URL": c.API.ReservationsURL,
		"API_AUTH_URL":         c.API.AuthURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}

	if c.API.BreakerThreshold < 1 {
		return fmt.Errorf("API_BREAKER_THRESHOLD must be at least 1")
	}

	if c.Session.CookieName == "" {
		return errors.New("SESSION_COOKIE is required")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.IsProduction() && !c.Session.Secure {
		return errors.New("SESSION_SECURE must be enabled in production")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
