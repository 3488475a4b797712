package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrMissingGatewayKey = errors.New("gateway.api_key is required (GATEWAY_API_KEY)")

const (
	defaultAddr           = ":3000"
	defaultGatewayURL     = "https://api.realtechdev.com.br"
	defaultAttributionURL = "https://api.utmify.com.br/api-credentials/orders"
	defaultPlatform       = "PixRelay"
	defaultExchange       = "pixrelay.orders"
	defaultIPEchoURL      = "https://api.ipify.org?format=json"
)

type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		IPEchoURL string `yaml:"ip_echo_url"`
	} `yaml:"server"`
	Gateway struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"gateway"`
	Attribution struct {
		URL            string `yaml:"url"`
		Token          string `yaml:"token"`
		Platform       string `yaml:"platform"`
		TestMode       bool   `yaml:"test_mode"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"attribution"`
	Orders struct {
		MinAmountCents       int64 `yaml:"min_amount_cents"`
		LifetimeMinutes      int   `yaml:"lifetime_minutes"`
		ExpireAfterMinutes   int   `yaml:"expire_after_minutes"`
		SweepIntervalSeconds int   `yaml:"sweep_interval_seconds"`
	} `yaml:"orders"`
	Events struct {
		RabbitURL string `yaml:"rabbit_url"`
		Exchange  string `yaml:"exchange"`
	} `yaml:"events"`
}

// Load reads the YAML file (optional) and applies environment overrides.
// The gateway key is the only mandatory setting.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Gateway.APIKey == "" {
		return nil, ErrMissingGatewayKey
	}
	return &cfg, nil
}

// Lifetime is the age after which the sweeper drops any order.
func (c *Config) Lifetime() time.Duration {
	return time.Duration(c.Orders.LifetimeMinutes) * time.Minute
}

// ExpireAfter is the age after which a pending order reads as expired.
// It never exceeds Lifetime, so an order is always seen expired before
// it disappears.
func (c *Config) ExpireAfter() time.Duration {
	return time.Duration(c.Orders.ExpireAfterMinutes) * time.Minute
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Orders.SweepIntervalSeconds) * time.Second
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

func (c *Config) AttributionTimeout() time.Duration {
	return time.Duration(c.Attribution.TimeoutSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("ATTRIBUTION_TOKEN"); v != "" {
		cfg.Attribution.Token = v
	}
	if v := os.Getenv("ATTRIBUTION_URL"); v != "" {
		cfg.Attribution.URL = v
	}
	if v := os.Getenv("ATTRIBUTION_TEST_MODE"); v != "" {
		cfg.Attribution.TestMode = parseBoolOr(cfg.Attribution.TestMode, v)
	}
	if v := os.Getenv("ORDER_LIFETIME_MINUTES"); v != "" {
		cfg.Orders.LifetimeMinutes = atoiOr(cfg.Orders.LifetimeMinutes, v)
	}
	if v := os.Getenv("ORDER_EXPIRE_AFTER_MINUTES"); v != "" {
		cfg.Orders.ExpireAfterMinutes = atoiOr(cfg.Orders.ExpireAfterMinutes, v)
	}
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		cfg.Orders.SweepIntervalSeconds = atoiOr(cfg.Orders.SweepIntervalSeconds, v)
	}
	if v := os.Getenv("MIN_AMOUNT_CENTS"); v != "" {
		cfg.Orders.MinAmountCents = atoi64Or(cfg.Orders.MinAmountCents, v)
	}
	if v := os.Getenv("RABBIT_URL"); v != "" {
		cfg.Events.RabbitURL = v
	}
	if v := os.Getenv("EVENTS_EXCHANGE"); v != "" {
		cfg.Events.Exchange = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.IPEchoURL == "" {
		cfg.Server.IPEchoURL = defaultIPEchoURL
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = defaultGatewayURL
	}
	if cfg.Gateway.TimeoutSeconds <= 0 {
		cfg.Gateway.TimeoutSeconds = 15
	}
	if cfg.Attribution.URL == "" {
		cfg.Attribution.URL = defaultAttributionURL
	}
	if cfg.Attribution.Platform == "" {
		cfg.Attribution.Platform = defaultPlatform
	}
	if cfg.Attribution.TimeoutSeconds <= 0 {
		cfg.Attribution.TimeoutSeconds = 10
	}
	if cfg.Orders.MinAmountCents <= 0 {
		cfg.Orders.MinAmountCents = 500
	}
	if cfg.Orders.LifetimeMinutes <= 0 {
		cfg.Orders.LifetimeMinutes = 30
	}
	if cfg.Orders.ExpireAfterMinutes <= 0 || cfg.Orders.ExpireAfterMinutes > cfg.Orders.LifetimeMinutes {
		cfg.Orders.ExpireAfterMinutes = cfg.Orders.LifetimeMinutes
	}
	if cfg.Orders.SweepIntervalSeconds <= 0 {
		cfg.Orders.SweepIntervalSeconds = 300
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = defaultExchange
	}
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func parseBoolOr(fallback bool, v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
