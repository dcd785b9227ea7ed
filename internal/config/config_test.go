package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Universe.Strategy != "risk_parity" {
		t.Errorf("expected default strategy risk_parity, got %q", cfg.Universe.Strategy)
	}
	if cfg.Optimization.MinWeight != 0.01 || cfg.Optimization.MaxWeight != 0.50 {
		t.Errorf("unexpected default bounds: %f / %f", cfg.Optimization.MinWeight, cfg.Optimization.MaxWeight)
	}
	if cfg.Optimization.RiskFreeRate != 0.02 {
		t.Errorf("expected default risk-free rate 0.02, got %f", cfg.Optimization.RiskFreeRate)
	}
	if cfg.Rebalance.DeviationThreshold != 0.05 || cfg.Rebalance.SharpeThreshold != 0.1 {
		t.Errorf("unexpected default thresholds: %f / %f",
			cfg.Rebalance.DeviationThreshold, cfg.Rebalance.SharpeThreshold)
	}
	if cfg.MarketData.SnapshotTTL.Std() != 5*time.Minute {
		t.Errorf("expected default snapshot TTL 5m, got %v", cfg.MarketData.SnapshotTTL.Std())
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %q", cfg.Server.ListenAddr)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
universe:
  assets: [BTC, ETH, SOL]
  strategy: min_variance
optimization:
  min_weight: 0.05
  max_weight: 0.40
  risk_free_rate: 0.03
rebalance:
  deviation_threshold: 0.10
market_data:
  snapshot_ttl: 2m
database:
  postgres_dsn: postgres://localhost/test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Universe.Assets) != 3 || cfg.Universe.Assets[0] != "BTC" {
		t.Errorf("unexpected assets: %v", cfg.Universe.Assets)
	}
	if cfg.Universe.Strategy != "min_variance" {
		t.Errorf("expected strategy min_variance, got %q", cfg.Universe.Strategy)
	}
	if cfg.Optimization.MinWeight != 0.05 || cfg.Optimization.MaxWeight != 0.40 {
		t.Errorf("unexpected bounds: %f / %f", cfg.Optimization.MinWeight, cfg.Optimization.MaxWeight)
	}
	if cfg.Rebalance.DeviationThreshold != 0.10 {
		t.Errorf("expected deviation threshold 0.10, got %f", cfg.Rebalance.DeviationThreshold)
	}
	if cfg.MarketData.SnapshotTTL.Std() != 2*time.Minute {
		t.Errorf("expected snapshot TTL 2m, got %v", cfg.MarketData.SnapshotTTL.Std())
	}
	if cfg.Database.PostgresDSN != "postgres://localhost/test" {
		t.Errorf("unexpected postgres DSN: %q", cfg.Database.PostgresDSN)
	}

	// Unset fields still get defaults.
	if cfg.Rebalance.MinTradeSize != 0.001 {
		t.Errorf("expected default min trade size, got %f", cfg.Rebalance.MinTradeSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
universe:
  assets: [BTC]
  strategy: equal_weight
database:
  postgres_dsn: postgres://file/db
`)

	t.Setenv("POSTGRES_DSN", "postgres://env/db")
	t.Setenv("OPTIMIZER_STRATEGY", "market_cap")
	t.Setenv("RISK_FREE_RATE", "0.05")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.PostgresDSN != "postgres://env/db" {
		t.Errorf("env override lost: %q", cfg.Database.PostgresDSN)
	}
	if cfg.Universe.Strategy != "market_cap" {
		t.Errorf("env strategy override lost: %q", cfg.Universe.Strategy)
	}
	if cfg.Optimization.RiskFreeRate != 0.05 {
		t.Errorf("env risk-free rate override lost: %f", cfg.Optimization.RiskFreeRate)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "universe: [not: a: map")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Universe.Assets = []string{"BTC", "ETH"}
		applyDefaults(cfg)
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg := valid()
	cfg.Universe.Assets = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty universe")
	}

	cfg = valid()
	cfg.Optimization.MinWeight = 0.6
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for min above max")
	}

	cfg = valid()
	cfg.Optimization.MaxWeight = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max above 1")
	}

	cfg = valid()
	cfg.Rebalance.MinTradeSize = -0.1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative min trade size")
	}
}
