package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[app]
symbol = "btcusdt"
bucket_width = 50.0
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Symbol != "BTCUSDT" {
		t.Errorf("symbol should be upper-cased, got %q", cfg.App.Symbol)
	}
	if cfg.App.PollSeconds != 1.5 {
		t.Errorf("expected default poll 1.5s, got %v", cfg.App.PollSeconds)
	}
	if cfg.OrderBook.Source != "service" {
		t.Errorf("expected default book source, got %q", cfg.OrderBook.Source)
	}
	if cfg.Exchange.Bybit.BaseURL != "https://api.bybit.com" {
		t.Errorf("expected default bybit url, got %q", cfg.Exchange.Bybit.BaseURL)
	}
	if cfg.Trading.AdvanceStepPct != 2 || cfg.Trading.ProtectionMargin != 2 {
		t.Errorf("expected default ratchet params, got %v/%v",
			cfg.Trading.AdvanceStepPct, cfg.Trading.ProtectionMargin)
	}
	if cfg.PollInterval() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s poll interval, got %v", cfg.PollInterval())
	}
}

func TestLoadRejectsMissingSymbol(t *testing.T) {
	_, err := Load(writeConfig(t, `
[app]
bucket_width = 50.0
`))
	if err == nil {
		t.Fatal("expected rejection of a missing symbol")
	}
}

func TestLoadRejectsBadBucketWidth(t *testing.T) {
	_, err := Load(writeConfig(t, `
[app]
symbol = "BTCUSDT"
bucket_width = -1.0
`))
	if err == nil {
		t.Fatal("expected rejection of a non-positive bucket width")
	}
}

func TestLoadRejectsUnknownBookSource(t *testing.T) {
	_, err := Load(writeConfig(t, `
[app]
symbol = "BTCUSDT"
bucket_width = 50.0

[orderbook]
source = "carrier_pigeon"
`))
	if err == nil {
		t.Fatal("expected rejection of an unknown book source")
	}
}

func TestLoadRejectsEnabledStorageWithoutTarget(t *testing.T) {
	_, err := Load(writeConfig(t, `
[app]
symbol = "BTCUSDT"
bucket_width = 50.0

[storage.sqlite]
enabled = true
`))
	if err == nil {
		t.Fatal("expected rejection of sqlite enabled without a path")
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[app]
symbol = "ETHUSDT"
bucket_width = 5.0
poll_seconds = 0.5
sweep_seconds = 30.0

[trading]
order_notional = 100.0
initial_stop_pct = 1.5

[orderbook]
source = "binance_ws"
depth = 10

[storage.redis]
enabled = true
addr = "localhost:6379"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SweepInterval() != 30*time.Second {
		t.Errorf("expected 30s sweep, got %v", cfg.SweepInterval())
	}
	if cfg.OrderBook.Depth != 10 {
		t.Errorf("expected depth 10, got %d", cfg.OrderBook.Depth)
	}
	if !cfg.Storage.Redis.Enabled || cfg.Storage.Redis.Prefix != "obpilot" {
		t.Errorf("redis config not applied: %+v", cfg.Storage.Redis)
	}
}
