// Package config loads server configuration from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/groupsplit/internal/money"
)

// Config holds all server settings.
type Config struct {
	Port   int
	DBPath string

	BackendURL     string
	BackendTimeout time.Duration
	GroupCacheTTL  time.Duration

	// JWTSecret verifies bearer tokens issued by the backend.
	JWTSecret string

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string

	DefaultCurrency string

	// MinorUnits overrides decimal places per currency code. Only settable from the YAML file.
	MinorUnits map[string]int32
}

// fileConfig is the YAML overlay read from CONFIG_FILE.
type fileConfig struct {
	DefaultCurrency string           `yaml:"default_currency"`
	Currencies      map[string]int32 `yaml:"currencies"`
}

// Load reads configuration. A .env file in the working directory is loaded first if
// present; real environment variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	var errs []error
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return fallback
		}
		return d
	}
	integer := func(key string, fallback int) int {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, raw))
			return fallback
		}
		return n
	}
	float := func(key string, fallback float64) float64 {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid number %q", key, raw))
			return fallback
		}
		return f
	}

	cfg := &Config{
		Port:            integer("PORT", 8080),
		DBPath:          get("DB_PATH", "./data/groupsplit.db"),
		BackendURL:      get("BACKEND_URL", "http://localhost:5000"),
		BackendTimeout:  duration("BACKEND_TIMEOUT", 10*time.Second),
		GroupCacheTTL:   duration("GROUP_CACHE_TTL", 30*time.Second),
		JWTSecret:       get("JWT_SECRET", ""),
		RateLimitRPS:    float("RATE_LIMIT_RPS", 20),
		RateLimitBurst:  integer("RATE_LIMIT_BURST", 40),
		LogLevel:        strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(get("LOG_FORMAT", "text")),
		DefaultCurrency: strings.ToUpper(get("DEFAULT_CURRENCY", money.DefaultCurrency)),
	}

	if path := get("CONFIG_FILE", ""); path != "" {
		if err := cfg.overlay(path); err != nil {
			errs = append(errs, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if fc.DefaultCurrency != "" {
		c.DefaultCurrency = strings.ToUpper(fc.DefaultCurrency)
	}
	if len(fc.Currencies) > 0 {
		c.MinorUnits = make(map[string]int32, len(fc.Currencies))
		for code, places := range fc.Currencies {
			c.MinorUnits[strings.ToUpper(code)] = places
		}
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH: required"))
	}
	if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_URL: %q is not an absolute URL", c.BackendURL))
	}
	if c.BackendTimeout <= 0 {
		errs = append(errs, errors.New("BACKEND_TIMEOUT: must be positive"))
	}
	if c.GroupCacheTTL < 0 {
		errs = append(errs, errors.New("GROUP_CACHE_TTL: must not be negative"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET: required"))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL: unknown level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", c.LogFormat))
	}
	if !money.ValidCurrency(c.DefaultCurrency) {
		errs = append(errs, fmt.Errorf("DEFAULT_CURRENCY: invalid code %q", c.DefaultCurrency))
	}
	for code, places := range c.MinorUnits {
		if !money.ValidCurrency(code) {
			errs = append(errs, fmt.Errorf("currencies: invalid code %q", code))
		}
		if places < 0 || places > 4 {
			errs = append(errs, fmt.Errorf("currencies: %s has %d minor units, want 0-4", code, places))
		}
	}
	return errors.Join(errs...)
}

// ApplyCurrencies installs the configured minor-unit overrides.
func (c *Config) ApplyCurrencies() {
	for code, places := range c.MinorUnits {
		money.SetMinorUnits(code, places)
	}
}
