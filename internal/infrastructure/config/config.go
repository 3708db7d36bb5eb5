package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		Symbol       string  `toml:"symbol"`
		BucketWidth  float64 `toml:"bucket_width"`
		PollSeconds  float64 `toml:"poll_seconds"`
		RetrySeconds float64 `toml:"retry_seconds"`
		SweepSeconds float64 `toml:"sweep_seconds"`
		LogLevel     string  `toml:"log_level"`
	} `toml:"app"`

	Trading struct {
		OrderNotional    float64 `toml:"order_notional"`
		InitialStopPct   float64 `toml:"initial_stop_pct"`
		AdvanceStepPct   float64 `toml:"advance_step_pct"`
		ProtectionMargin float64 `toml:"protection_margin_pct"`
	} `toml:"trading"`

	Model struct {
		Path string `toml:"path"`
	} `toml:"model"`

	OrderBook struct {
		Source  string `toml:"source"` // "service" or "binance_ws"
		BaseURL string `toml:"base_url"`
		WsURL   string `toml:"ws_url"`
		Depth   int    `toml:"depth"`
	} `toml:"orderbook"`

	Exchange struct {
		Bybit struct {
			BaseURL string `toml:"base_url"`
		} `toml:"bybit"`

		Binance struct {
			BaseURL string `toml:"base_url"`
		} `toml:"binance"`
	} `toml:"exchange"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
		} `toml:"redis"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.PollSeconds <= 0 {
		cfg.App.PollSeconds = 1.5
	}
	if cfg.App.RetrySeconds <= 0 {
		cfg.App.RetrySeconds = 10
	}
	if cfg.App.SweepSeconds <= 0 {
		cfg.App.SweepSeconds = 10
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Trading.OrderNotional <= 0 {
		cfg.Trading.OrderNotional = 25
	}
	if cfg.Trading.InitialStopPct <= 0 {
		cfg.Trading.InitialStopPct = 2
	}
	if cfg.Trading.AdvanceStepPct <= 0 {
		cfg.Trading.AdvanceStepPct = 2
	}
	if cfg.Trading.ProtectionMargin <= 0 {
		cfg.Trading.ProtectionMargin = 2
	}
	if cfg.Model.Path == "" {
		cfg.Model.Path = "model.json"
	}
	if cfg.OrderBook.Source == "" {
		cfg.OrderBook.Source = "service"
	}
	if cfg.OrderBook.BaseURL == "" {
		cfg.OrderBook.BaseURL = "http://localhost:8000"
	}
	if cfg.OrderBook.WsURL == "" {
		cfg.OrderBook.WsURL = "wss://fstream.binance.com"
	}
	if cfg.OrderBook.Depth <= 0 {
		cfg.OrderBook.Depth = 20
	}
	if cfg.Exchange.Bybit.BaseURL == "" {
		cfg.Exchange.Bybit.BaseURL = "https://api.bybit.com"
	}
	if cfg.Exchange.Binance.BaseURL == "" {
		cfg.Exchange.Binance.BaseURL = "https://fapi.binance.com"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "obpilot"
	}
	if cfg.Storage.Redis.TTLSeconds <= 0 {
		cfg.Storage.Redis.TTLSeconds = 300
	}
}

func validate(cfg *Config) error {
	cfg.App.Symbol = strings.ToUpper(strings.TrimSpace(cfg.App.Symbol))
	if cfg.App.Symbol == "" {
		return errors.New("app.symbol is empty")
	}
	if cfg.App.BucketWidth <= 0 {
		return errors.New("app.bucket_width must be positive")
	}
	switch cfg.OrderBook.Source {
	case "service", "binance_ws":
	default:
		return fmt.Errorf("orderbook.source %q unknown (want service or binance_ws)", cfg.OrderBook.Source)
	}
	if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		return errors.New("storage.sqlite.path empty but enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	return nil
}

// PollInterval is the touch-monitor cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.App.PollSeconds * float64(time.Second))
}

// RetryDelay is the pause after a skipped cycle.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.App.RetrySeconds * float64(time.Second))
}

// SweepInterval is the protection sweep cadence.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.App.SweepSeconds * float64(time.Second))
}
