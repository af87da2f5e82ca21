package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
)

type Config struct {
	AppEnv string
	Port   string

	// Downstream services
	EventServiceURL string
	AdminServiceURL string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration

	// JWT verification (must match auth-service signing config)
	JWTSecret string

	// Redis backs the shared response cache and the rate limiter. Empty
	// means in-process cache and per-instance rate limiting.
	RedisURL string

	// Cache
	CacheTTL        time.Duration
	CachePrefix     string
	DefaultPageSize int

	// Display timezone: IANA name or fixed offset such as "+03:00"
	DisplayTimezone string
	Location        *time.Location

	// RabbitMQ; empty URL disables broker notifications
	RabbitURL      string
	RabbitExchange string

	// Background refresh
	RefreshCron        string
	RefreshBearerToken string

	// Rate limit
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	// Tracing
	OTelEnabled  bool
	OTelEndpoint string
	OTelSample   float64

	// Logging
	LogLevel  string
	LogFormat string

	// HTTP server
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{}
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Port = getEnv("HTTP_PORT", "8080")

	cfg.EventServiceURL = getEnv("EVENT_SERVICE_URL", "http://event-service:8080")
	cfg.AdminServiceURL = getEnv("ADMIN_SERVICE_URL", "http://admin-service:8080")
	cfg.ReadTimeout = getDuration("DOWNSTREAM_READ_TIMEOUT", 5*time.Second, &errs)
	cfg.WriteTimeout = getDuration("DOWNSTREAM_WRITE_TIMEOUT", 10*time.Second, &errs)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.RedisURL = getEnv("REDIS_URL", "")

	cfg.CacheTTL = getDuration("CACHE_TTL", 60*time.Second, &errs)
	cfg.CachePrefix = getEnv("CACHE_PREFIX", "admin:events:list:")
	cfg.DefaultPageSize = getInt("DEFAULT_PAGE_SIZE", 10, &errs)

	cfg.DisplayTimezone = getEnv("DISPLAY_TIMEZONE", "+03:00")

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "admin.events")

	cfg.RefreshCron = getEnv("REFRESH_CRON", "@every 1m")
	cfg.RefreshBearerToken = getEnv("REFRESH_BEARER_TOKEN", "")

	cfg.RLEnabled = getBool("RL_ENABLED", true, &errs)
	cfg.RLLimit = getInt("RL_LIMIT", 300, &errs)
	cfg.RLWindow = getDuration("RL_WINDOW", time.Minute, &errs)

	cfg.OTelEnabled = getBool("OTEL_ENABLED", false, &errs)
	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.OTelSample = getFloat("OTEL_SAMPLE_RATIO", 1, &errs)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second, &errs)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second, &errs)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 120*time.Second, &errs)

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing JWT_SECRET"))
	}
	for key, raw := range map[string]string{
		"EVENT_SERVICE_URL": c.EventServiceURL,
		"ADMIN_SERVICE_URL": c.AdminServiceURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", key, raw))
		}
	}
	loc, err := reconcile.LoadLocation(c.DisplayTimezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("DISPLAY_TIMEZONE: %w", err))
	}
	c.Location = loc
	if c.DefaultPageSize < 1 || c.DefaultPageSize > 100 {
		errs = append(errs, fmt.Errorf("DEFAULT_PAGE_SIZE must be within 1..100, got %d", c.DefaultPageSize))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.RLEnabled && (c.RLLimit <= 0 || c.RLWindow <= 0) {
		errs = append(errs, errors.New("RL_LIMIT and RL_WINDOW must be positive when RL_ENABLED"))
	}
	if c.OTelEnabled && c.OTelEndpoint == "" {
		errs = append(errs, errors.New("missing OTEL_EXPORTER_OTLP_ENDPOINT (required when OTEL_ENABLED)"))
	}
	if c.AppEnv != "dev" && c.RedisURL == "" {
		errs = append(errs, errors.New("missing REDIS_URL (required when APP_ENV != dev)"))
	}
	return errs
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid integer env %s=%q", k, v))
		return def
	}
	return i
}

func getFloat(k string, def float64, errs *[]error) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		*errs = append(*errs, fmt.Errorf("invalid ratio env %s=%q", k, v))
		return def
	}
	return f
}

func getBool(k string, def bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		*errs = append(*errs, fmt.Errorf("invalid boolean env %s=%q", k, v))
		return def
	}
}

func getDuration(k string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid duration env %s=%q", k, v))
		return def
	}
	return d
}
