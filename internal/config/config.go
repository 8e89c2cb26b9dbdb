package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
	Providers struct {
		CoinMarketCapKey string `yaml:"coinmarketcap_api_key"`
		TimeoutSeconds   int    `yaml:"timeout_seconds"`
		RetrySeconds     int    `yaml:"retry_seconds"`
	} `yaml:"providers"`
	Schedule struct {
		EvalCron      string `yaml:"eval_cron"`
		BroadcastCron string `yaml:"broadcast_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("COINMARKETCAP_API_KEY"); v != "" {
		cfg.Providers.CoinMarketCapKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_EVAL"); v != "" {
		cfg.Schedule.EvalCron = v
	}
	if v := os.Getenv("CRON_BROADCAST"); v != "" {
		cfg.Schedule.BroadcastCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	// Defaults
	if cfg.Providers.TimeoutSeconds == 0 {
		cfg.Providers.TimeoutSeconds = 10
	}
	if cfg.Providers.RetrySeconds == 0 {
		cfg.Providers.RetrySeconds = 5
	}
	if cfg.Schedule.EvalCron == "" {
		cfg.Schedule.EvalCron = "0 */10 * * * *"
	}
	if cfg.Schedule.BroadcastCron == "" {
		cfg.Schedule.BroadcastCron = "0 */30 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/pricepilot.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Providers.TimeoutSeconds <= 0 {
		return fmt.Errorf("providers.timeout_seconds must be positive")
	}
	return nil
}

// ProviderTimeout returns the per-request provider timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// RetryDelay returns the delay between failed provider attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Providers.RetrySeconds) * time.Second
}
