package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Quotes struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"quotes"`
	Fundamentals struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		MaxAge      time.Duration `yaml:"max_age"`
		GroupDelay  time.Duration `yaml:"group_delay"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"fundamentals"`
	Cache struct {
		Backend string `yaml:"backend"` // file, redis or memory
		Path    string `yaml:"path"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Key      string `yaml:"key"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Scanner struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		ViewLimit    int           `yaml:"view_limit"`
	} `yaml:"scanner"`
	Alerts struct {
		SpikeThreshold  float64       `yaml:"spike_threshold"`
		VolumeThreshold float64       `yaml:"volume_threshold"`
		MaxAlerts       int           `yaml:"max_alerts"`
		Highlight       time.Duration `yaml:"highlight"`
	} `yaml:"alerts"`
	Demo struct {
		Enabled bool  `yaml:"enabled"`
		Seed    int64 `yaml:"seed"`
		Symbols int   `yaml:"symbols"`
	} `yaml:"demo"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	LogLevel string `yaml:"log_level"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file over Defaults, then applies .env and
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"QUOTES_BASE_URL":       &c.Quotes.BaseURL,
		"QUOTES_API_KEY":        &c.Quotes.APIKey,
		"FUNDAMENTALS_BASE_URL": &c.Fundamentals.BaseURL,
		"FUNDAMENTALS_API_KEY":  &c.Fundamentals.APIKey,
		"CACHE_BACKEND":         &c.Cache.Backend,
		"CACHE_PATH":            &c.Cache.Path,
		"REDIS_ADDR":            &c.Cache.Redis.Addr,
		"REDIS_PASSWORD":        &c.Cache.Redis.Password,
		"TELEGRAM_BOT_TOKEN":    &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":      &c.Telegram.ChatID,
		"SQLITE_PATH":           &c.Database.SQLitePath,
		"HTTP_ADDR":             &c.HTTP.Addr,
		"LOG_LEVEL":             &c.LogLevel,
		"HTTPS_PROXY":           &c.Proxy,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("POLL_INTERVAL: %w", err)
		}
		c.Scanner.PollInterval = d
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Cache.Redis.DB = n
	}
	if v := os.Getenv("DEMO_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEMO_ENABLED: %w", err)
		}
		c.Demo.Enabled = b
	}
	return nil
}

// Defaults returns the configuration used for every key the YAML file and
// the environment leave unset. Keys that are present, even as zero, win.
func Defaults() *Config {
	c := &Config{}
	c.Fundamentals.MaxAge = 24 * time.Hour
	c.Fundamentals.GroupDelay = 200 * time.Millisecond
	c.Fundamentals.Concurrency = 5
	c.Cache.Backend = "file"
	c.Cache.Path = "data/fundamentals_cache.json"
	c.Cache.Redis.Key = "fundamentals:cache"
	c.Scanner.PollInterval = 60 * time.Second
	c.Scanner.ViewLimit = 25
	c.Alerts.SpikeThreshold = 3
	c.Alerts.VolumeThreshold = 10
	c.Alerts.MaxAlerts = 30
	c.Alerts.Highlight = 30 * time.Second
	c.Demo.Seed = 42
	c.Demo.Symbols = 40
	c.Database.SQLitePath = "data/momentum_watch.db"
	c.HTTP.Addr = ":8080"
	c.LogLevel = "info"
	return c
}

// TelegramEnabled reports whether both Telegram credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Quotes.BaseURL == "" {
		return fmt.Errorf("quotes.base_url is required")
	}
	if c.Quotes.APIKey == "" {
		return fmt.Errorf("quotes.api_key is required")
	}
	if c.Fundamentals.BaseURL == "" {
		return fmt.Errorf("fundamentals.base_url is required")
	}
	switch c.Cache.Backend {
	case "file":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the file backend")
		}
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q must be file, redis or memory", c.Cache.Backend)
	}
	if c.Scanner.PollInterval < time.Second {
		return fmt.Errorf("scanner.poll_interval must be at least 1s")
	}
	if c.Scanner.ViewLimit < 0 {
		return fmt.Errorf("scanner.view_limit must not be negative")
	}
	if c.Alerts.SpikeThreshold < 0 || c.Alerts.VolumeThreshold < 0 {
		return fmt.Errorf("alerts thresholds must not be negative")
	}
	if c.Alerts.MaxAlerts < 1 {
		return fmt.Errorf("alerts.max_alerts must be at least 1")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
