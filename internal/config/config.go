package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CurrencySymbol     string
	CORSAllowedOrigins []string

	Session    SessionConfig
	RateLimit  RateLimitConfig
	Recognizer RecognizerConfig
	Obs        ObsConfig

	IdempotencyTTL time.Duration
}

// SessionConfig controls Redis-backed cart and comparison sessions.
type SessionConfig struct {
	TTL              time.Duration
	KeyPrefix        string
	LockTTL          time.Duration
	LockRetryBackoff time.Duration
}

// RateLimitConfig controls write-route and recognition throttling.
type RateLimitConfig struct {
	Window time.Duration
	Max    int
	// RecognizerRate uses the ulule formatted notation, e.g. "20-M".
	RecognizerRate string
}

// RecognizerConfig points at the external text recognition service.
type RecognizerConfig struct {
	URL                string
	Timeout            time.Duration
	MaxAttempts        int
	RetryBase          time.Duration
	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration
}

// ObsConfig toggles logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	EnablePrometheus bool
	EnableTracing    bool
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k, err := fromEnv()
	if err != nil {
		return nil, err
	}
	return build(k)
}

func fromEnv() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return k, nil
}

func build(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CurrencySymbol:     valueOrDefault(k.String("CURRENCY_SYMBOL"), "₩"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		Session: SessionConfig{
			TTL:              parseDuration(k.String("SESSION_TTL"), "24h"),
			KeyPrefix:        valueOrDefault(k.String("SESSION_KEY_PREFIX"), "cartcalc:"),
			LockTTL:          parseDuration(k.String("LOCK_TTL"), "5s"),
			LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "20ms"),
		},
		RateLimit: RateLimitConfig{
			Window:         parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
			Max:            parseInt(k.String("RATE_LIMIT_MAX"), 120),
			RecognizerRate: valueOrDefault(k.String("RECOGNIZER_RATE"), "20-M"),
		},
		Recognizer: RecognizerConfig{
			URL:                strings.TrimSpace(k.String("RECOGNIZER_URL")),
			Timeout:            parseDuration(k.String("RECOGNIZER_TIMEOUT"), "10s"),
			MaxAttempts:        parseInt(k.String("RECOGNIZER_MAX_ATTEMPTS"), 3),
			RetryBase:          parseDuration(k.String("RECOGNIZER_RETRY_BASE"), "200ms"),
			CircuitMinRequests: parseInt(k.String("CIRCUIT_RECOGNIZER_MIN_REQ"), 10),
			CircuitFailureRate: parseFloat(k.String("CIRCUIT_RECOGNIZER_FAILURE_RATE"), 0.5),
			CircuitOpenFor:     parseDuration(k.String("CIRCUIT_RECOGNIZER_OPEN_FOR"), "30s"),
		},
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "cartcalc"),
			EnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		},
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.RateLimit.Max <= 0 {
		return nil, errors.New("RATE_LIMIT_MAX must be positive")
	}
	if r := cfg.Recognizer.CircuitFailureRate; r <= 0 || r > 1 {
		return nil, fmt.Errorf("CIRCUIT_RECOGNIZER_FAILURE_RATE must be in (0,1], got %v", r)
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// RecognizerEnabled reports whether an external recognizer is configured.
func (c *Config) RecognizerEnabled() bool {
	return c.Recognizer.URL != ""
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests builds a config from the process environment overlaid with
// overrides. The environment itself is not modified and .env files are ignored.
func LoadForTests(overrides map[string]string) (*Config, error) {
	k, err := fromEnv()
	if err != nil {
		return nil, err
	}
	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}
	return build(k)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	d, err := time.ParseDuration(valueOrDefault(value, fallback))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
