package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModePaper {
		t.Fatalf("expected paper default, got %s", cfg.Mode)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updown.yaml")
	data := []byte(`
mode: paper
poll_interval: 10s
stake_pct: 0.08
min_trade_usd: 25
max_trade_usd: 250
grace_period: 30s
trailing_enabled: false
daily_loss_limit: 75
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("expected 10s poll, got %s", cfg.PollInterval)
	}
	if cfg.StakePct != 0.08 {
		t.Fatalf("expected stake 0.08, got %v", cfg.StakePct)
	}
	if !cfg.MinTradeUSD.Equal(decimal.NewFromInt(25)) || !cfg.MaxTradeUSD.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("trade bounds not applied: %s/%s", cfg.MinTradeUSD, cfg.MaxTradeUSD)
	}
	if cfg.GracePeriod != 30*time.Second {
		t.Fatalf("expected 30s grace, got %s", cfg.GracePeriod)
	}
	if cfg.TrailingEnabled {
		t.Fatal("expected trailing disabled")
	}
	if !cfg.DailyLossLimit.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected daily limit 75, got %s", cfg.DailyLossLimit)
	}
	// Untouched knobs keep their defaults.
	if cfg.MaxConsecutiveLosses != Default().MaxConsecutiveLosses {
		t.Fatalf("unrelated knob changed: %d", cfg.MaxConsecutiveLosses)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updown.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: soon\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("UPDOWN_MODE", "live")
	t.Setenv("UPDOWN_STAKE_PCT", "0.05")
	t.Setenv("UPDOWN_VENUE_URL", "https://example.test")

	cfg := Default().MergeEnv()
	if cfg.Mode != ModeLive {
		t.Fatalf("expected live, got %s", cfg.Mode)
	}
	if cfg.StakePct != 0.05 {
		t.Fatalf("expected 0.05, got %v", cfg.StakePct)
	}
	if cfg.VenueBaseURL != "https://example.test" {
		t.Fatalf("expected env url, got %s", cfg.VenueBaseURL)
	}
}

func TestValidateRejectsBadCombos(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "demo" }},
		{"bad gating", func(c *Config) { c.RecGating = "maybe" }},
		{"inverted trade bounds", func(c *Config) { c.MaxTradeUSD = c.MinTradeUSD.Sub(decimal.NewFromInt(1)) }},
		{"inverted entry prices", func(c *Config) { c.MinEntryPrice = c.MaxEntryPrice }},
		{"inverted rsi zone", func(c *Config) { c.RSIDeadZoneLow = 60; c.RSIDeadZoneHigh = 40 }},
		{"zero breaker", func(c *Config) { c.MaxConsecutiveLosses = 0 }},
		{"grace without period", func(c *Config) { c.GraceEnabled = true; c.GracePeriod = 0 }},
		{"dynamic loss without pct", func(c *Config) { c.DynamicMaxLoss = true; c.MaxLossPct = 0 }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	sat := time.Date(2026, time.January, 3, 12, 0, 0, 0, time.UTC)
	thu := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	if !IsWeekend(sat) {
		t.Fatal("saturday is a weekend")
	}
	if IsWeekend(thu) {
		t.Fatal("thursday is not a weekend")
	}
}
