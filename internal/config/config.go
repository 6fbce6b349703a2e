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

type Server struct {
	Port              string `yaml:"port"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

type Cache struct {
	// Backend is memory or redis.
	Backend  string `yaml:"backend"`
	TTLSec   int    `yaml:"ttl_sec"`
	RedisURL string `yaml:"redis_url"`
}

// Exchange configures one adapter. Empty paths keep the adapter defaults.
type Exchange struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	ListingPath string `yaml:"listing_path"`
	IndexPath   string `yaml:"index_path"`
	// Quote and FamilyParam only apply to OKX.
	Quote                 string `yaml:"quote"`
	FamilyParam           string `yaml:"family_param"`
	TimeoutSec            int    `yaml:"timeout_sec"`
	MaxRequestsPerMinute  int    `yaml:"max_requests_per_minute"`
	Burst                 int    `yaml:"burst"`
	MinRequestIntervalSec int    `yaml:"min_request_interval_sec"`
}

type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Server  Server   `yaml:"server"`
	Cache   Cache    `yaml:"cache"`
	Deribit Exchange `yaml:"deribit"`
	OKX     Exchange `yaml:"okx"`
	Log     Log      `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30},
		Cache:  Cache{Backend: "memory", TTLSec: 300},
		Deribit: Exchange{
			Enabled:              true,
			BaseURL:              "https://www.deribit.com",
			TimeoutSec:           15,
			MaxRequestsPerMinute: 60,
			Burst:                5,
		},
		OKX: Exchange{
			Enabled:              true,
			BaseURL:              "https://www.okx.com",
			Quote:                "USD",
			FamilyParam:          "instFamily",
			TimeoutSec:           15,
			MaxRequestsPerMinute: 60,
			Burst:                5,
		},
		Log: Log{Level: "info", Format: "json", Output: "stdout"},
	}
}

func (c Cache) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

func (e Exchange) Timeout() time.Duration { return time.Duration(e.TimeoutSec) * time.Second }

func (e Exchange) MinInterval() time.Duration {
	return time.Duration(e.MinRequestIntervalSec) * time.Second
}

func (s Server) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

// Load reads YAML (or JSON) config from path. If path is empty, config.yaml
// in the working directory is used when present, otherwise defaults.
// Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	switch c.Cache.Backend {
	case "memory", "":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend '%s' is invalid: want memory or redis", c.Cache.Backend)
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative")
	}
	if !c.Deribit.Enabled && !c.OKX.Enabled {
		return fmt.Errorf("at least one of deribit, okx must be enabled")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)

	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	envInt("CACHE_TTL_SEC", &cfg.Cache.TTLSec, 0)
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}

	applyExchangeEnv("DERIBIT", &cfg.Deribit)
	applyExchangeEnv("OKX", &cfg.OKX)
	if v := os.Getenv("OKX_QUOTE"); v != "" {
		cfg.OKX.Quote = strings.ToUpper(v)
	}
	if v := os.Getenv("OKX_FAMILY_PARAM"); v != "" {
		cfg.OKX.FamilyParam = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		cfg.Log.Output = v
	}
	envInt("LOG_MAX_AGE_DAYS", &cfg.Log.MaxAgeDays, 0)
}

func applyExchangeEnv(prefix string, e *Exchange) {
	envBool(prefix+"_ENABLED", &e.Enabled)
	if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
		e.BaseURL = v
	}
	if v := os.Getenv(prefix + "_LISTING_PATH"); v != "" {
		e.ListingPath = v
	}
	if v := os.Getenv(prefix + "_INDEX_PATH"); v != "" {
		e.IndexPath = v
	}
	envInt(prefix+"_TIMEOUT_SEC", &e.TimeoutSec, 1)
	envInt(prefix+"_MAX_RPM", &e.MaxRequestsPerMinute, 0)
	envInt(prefix+"_BURST", &e.Burst, 1)
	envInt(prefix+"_MIN_INTERVAL_SEC", &e.MinRequestIntervalSec, 0)
}

// envInt sets *dst from key when it parses and is at least minimum.
func envInt(key string, dst *int, minimum int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil && x >= minimum {
		*dst = x
	}
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}
