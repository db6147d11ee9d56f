package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t, "ARBITRAGE_THRESHOLD", "ARB_RATE_LIMIT_MS", "INITIAL_CAPITAL", "DATABASE_URL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.ArbitrageThreshold != 0.995 {
		t.Errorf("ArbitrageThreshold = %v, want 0.995", cfg.ArbitrageThreshold)
	}
	if cfg.ArbRateLimitMs != 1000 {
		t.Errorf("ArbRateLimitMs = %v, want 1000", cfg.ArbRateLimitMs)
	}
	if cfg.InitialCapital != 1000.0 {
		t.Errorf("InitialCapital = %v, want 1000.0", cfg.InitialCapital)
	}
	if cfg.BufferFlushPeriod != 5*time.Second {
		t.Errorf("BufferFlushPeriod = %v, want 5s", cfg.BufferFlushPeriod)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t, "ARBITRAGE_THRESHOLD", "WS_MAX_SUBSCRIPTIONS")
	os.Setenv("ARBITRAGE_THRESHOLD", "0.99")
	os.Setenv("WS_MAX_SUBSCRIPTIONS", "50")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.ArbitrageThreshold != 0.99 {
		t.Errorf("ArbitrageThreshold = %v, want 0.99", cfg.ArbitrageThreshold)
	}
	if cfg.WSMaxSubscriptions != 50 {
		t.Errorf("WSMaxSubscriptions = %v, want 50", cfg.WSMaxSubscriptions)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := &Config{
		DatabaseURL:        "postgres://x",
		ArbitrageThreshold: 1.5,
		ArbRateLimitMs:     1000,
		ArbMinTradeSize:    1,
		ArbOrderSize:       10,
		WSMaxSubscriptions: 1,
		InitialCapital:     100,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for threshold >= 1.0")
	}
}

func TestValidateRejectsOrderSizeBelowMin(t *testing.T) {
	cfg := &Config{
		DatabaseURL:        "postgres://x",
		ArbitrageThreshold: 0.995,
		ArbRateLimitMs:     1000,
		ArbMinTradeSize:    20,
		ArbOrderSize:       10,
		WSMaxSubscriptions: 1,
		InitialCapital:     100,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error when ArbOrderSize < ArbMinTradeSize")
	}
}
