package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5m" parse.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all application configuration.
type Config struct {
	Universe struct {
		Assets   []string `yaml:"assets"`
		Strategy string   `yaml:"strategy"`
	} `yaml:"universe"`
	Optimization struct {
		MinWeight           float64 `yaml:"min_weight"`
		MaxWeight           float64 `yaml:"max_weight"`
		RiskFreeRate        float64 `yaml:"risk_free_rate"`
		VolatilityLookback  int     `yaml:"volatility_lookback_days"`
		CorrelationLookback int     `yaml:"correlation_lookback_days"`
	} `yaml:"optimization"`
	Rebalance struct {
		DeviationThreshold float64 `yaml:"deviation_threshold"`
		SharpeThreshold    float64 `yaml:"sharpe_threshold"`
		MinTradeSize       float64 `yaml:"min_trade_size"`
		BaseFeeRate        float64 `yaml:"base_fee_rate"`
		BaseSlippageRate   float64 `yaml:"base_slippage_rate"`
	} `yaml:"rebalance"`
	MarketData struct {
		SnapshotTTL Duration `yaml:"snapshot_ttl"`
	} `yaml:"market_data"`
	Schedule struct {
		OptimizeCron string `yaml:"optimize_cron"`
	} `yaml:"schedule"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Database struct {
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
		RedisAddr     string `yaml:"redis_addr"`
	} `yaml:"database"`
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
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Database.ClickhouseDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Database.RedisAddr = v
	}
	if v := os.Getenv("OPTIMIZER_STRATEGY"); v != "" {
		cfg.Universe.Strategy = v
	}
	if v := os.Getenv("OPTIMIZER_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("OPTIMIZER_CRON"); v != "" {
		cfg.Schedule.OptimizeCron = v
	}
	if v := os.Getenv("RISK_FREE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Optimization.RiskFreeRate = rate
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Universe.Strategy == "" {
		cfg.Universe.Strategy = "risk_parity"
	}
	if cfg.Optimization.MinWeight == 0 {
		cfg.Optimization.MinWeight = 0.01
	}
	if cfg.Optimization.MaxWeight == 0 {
		cfg.Optimization.MaxWeight = 0.50
	}
	if cfg.Optimization.RiskFreeRate == 0 {
		cfg.Optimization.RiskFreeRate = 0.02
	}
	if cfg.Optimization.VolatilityLookback == 0 {
		cfg.Optimization.VolatilityLookback = 30
	}
	if cfg.Optimization.CorrelationLookback == 0 {
		cfg.Optimization.CorrelationLookback = 90
	}
	if cfg.Rebalance.DeviationThreshold == 0 {
		cfg.Rebalance.DeviationThreshold = 0.05
	}
	if cfg.Rebalance.SharpeThreshold == 0 {
		cfg.Rebalance.SharpeThreshold = 0.1
	}
	if cfg.Rebalance.MinTradeSize == 0 {
		cfg.Rebalance.MinTradeSize = 0.001
	}
	if cfg.Rebalance.BaseFeeRate == 0 {
		cfg.Rebalance.BaseFeeRate = 0.001
	}
	if cfg.Rebalance.BaseSlippageRate == 0 {
		cfg.Rebalance.BaseSlippageRate = 0.001
	}
	if cfg.MarketData.SnapshotTTL == 0 {
		cfg.MarketData.SnapshotTTL = Duration(5 * time.Minute)
	}
	if cfg.Schedule.OptimizeCron == "" {
		cfg.Schedule.OptimizeCron = "0 * * * *"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if len(c.Universe.Assets) == 0 {
		return fmt.Errorf("universe.assets is required")
	}
	if c.Optimization.MinWeight < 0 || c.Optimization.MinWeight >= 1 {
		return fmt.Errorf("optimization.min_weight must be in [0, 1)")
	}
	if c.Optimization.MaxWeight <= 0 || c.Optimization.MaxWeight > 1 {
		return fmt.Errorf("optimization.max_weight must be in (0, 1]")
	}
	if c.Optimization.MinWeight >= c.Optimization.MaxWeight {
		return fmt.Errorf("optimization.min_weight must be below max_weight")
	}
	if c.Rebalance.DeviationThreshold <= 0 {
		return fmt.Errorf("rebalance.deviation_threshold must be positive")
	}
	if c.Rebalance.MinTradeSize < 0 {
		return fmt.Errorf("rebalance.min_trade_size must not be negative")
	}
	return nil
}
