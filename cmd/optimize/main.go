// Package main provides a one-shot portfolio optimization run:
// load market data → optimize → decide → plan → render reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pollen-optimizer/internal/config"
	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/marketdata"
	"pollen-optimizer/internal/marketdata/stub"
	"pollen-optimizer/internal/optimizer"
	"pollen-optimizer/internal/rebalance"
	"pollen-optimizer/internal/reporting"
	"pollen-optimizer/internal/storage"
	chstore "pollen-optimizer/internal/storage/clickhouse"
	"pollen-optimizer/internal/storage/memory"
	redisstore "pollen-optimizer/internal/storage/redis"
	"pollen-optimizer/internal/strategy"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	strategyName := flag.String("strategy", "", "Allocation strategy (equal_weight, market_cap, risk_parity, min_variance)")
	assetsFlag := flag.String("assets", "", "Comma-separated asset symbols (overrides config)")
	weightsFlag := flag.String("weights", "", "Current weights as symbol=weight pairs (e.g. BTC=0.5,ETH=0.5)")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	demo := flag.Bool("demo", false, "Use deterministic synthetic market data")
	flag.Parse()

	logger := log.New(os.Stdout, "[optimize] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *strategyName != "" {
		cfg.Universe.Strategy = *strategyName
	}
	if *assetsFlag != "" {
		cfg.Universe.Assets = splitList(*assetsFlag)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	strategyType, err := domain.ParseStrategyType(cfg.Universe.Strategy)
	if err != nil {
		logger.Fatalf("Invalid strategy: %v", err)
	}

	currentWeights, err := parseWeights(*weightsFlag, cfg.Universe.Assets)
	if err != nil {
		logger.Fatalf("Invalid weights: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider, cleanup, err := createProvider(ctx, cfg, *demo, logger)
	if err != nil {
		logger.Fatalf("Failed to create market data provider: %v", err)
	}
	defer cleanup()

	service := optimizer.New(optimizer.Options{
		Provider: provider,
		Constraints: strategy.Constraints{
			MinWeight: cfg.Optimization.MinWeight,
			MaxWeight: cfg.Optimization.MaxWeight,
		},
		Thresholds: rebalance.Thresholds{
			MaxDeviation:      cfg.Rebalance.DeviationThreshold,
			SharpeImprovement: cfg.Rebalance.SharpeThreshold,
		},
		Planner: rebalance.NewPlanner(rebalance.FeeModel{
			BaseFeeRate:      cfg.Rebalance.BaseFeeRate,
			BaseSlippageRate: cfg.Rebalance.BaseSlippageRate,
		}, logger),
		MinTradeSize: cfg.Rebalance.MinTradeSize,
		LookbackDays: cfg.Optimization.CorrelationLookback,
		Logger:       logger,
	})

	report, err := service.Run(ctx, cfg.Universe.Assets, currentWeights, strategyType)
	if err != nil {
		logger.Fatalf("Optimization failed: %v", err)
	}

	if err := writeReports(*outputDir, report); err != nil {
		logger.Fatalf("Failed to write reports: %v", err)
	}

	logger.Printf("Strategy: %s | Sharpe: %.4f | Rebalance: %v",
		report.Strategy, report.Metrics.SharpeRatio, report.Check.NeedsRebalance)
	logger.Printf("Reports written to %s", *outputDir)
}

// createProvider builds the market data provider: synthetic fixtures in
// demo mode, otherwise ClickHouse price history plus Redis snapshots.
func createProvider(ctx context.Context, cfg *config.Config, demo bool, logger *log.Logger) (marketdata.Provider, func(), error) {
	if demo {
		return demoProvider(cfg), func() {}, nil
	}

	if cfg.Database.ClickhouseDSN == "" {
		return nil, nil, fmt.Errorf("clickhouse DSN is required (or use --demo)")
	}
	conn, err := chstore.NewConn(ctx, cfg.Database.ClickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	var snapshotStore storage.SnapshotStore = memory.NewSnapshotStore()
	cleanup := func() { conn.Close() }
	if cfg.Database.RedisAddr != "" {
		client, err := redisstore.Dial(ctx, cfg.Database.RedisAddr)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		snapshotStore = redisstore.NewSnapshotStore(client, 0)
		cleanup = func() {
			_ = client.Close()
			conn.Close()
		}
	} else {
		logger.Printf("WARN: no redis address configured, snapshots unavailable")
	}

	return marketdata.NewStoreProvider(chstore.NewPriceHistoryStore(conn), snapshotStore), cleanup, nil
}

// demoProvider seeds a stub with synthetic series of varying drift so
// strategies produce visibly different allocations.
func demoProvider(cfg *config.Config) *stub.Provider {
	provider := stub.NewProvider()
	now := time.Now().UTC()
	for i, symbol := range cfg.Universe.Assets {
		drift := 0.0005 * float64(i+1)
		series := stub.GenerateSeries(symbol, 120, 100, drift)
		provider.SetSeries(symbol, series)
		last := series[len(series)-1]
		marketCap := 1e9 / float64(i+1)
		provider.SetSnapshot(stub.GenerateSnapshot(symbol, last.Close, marketCap, now))
	}
	return provider
}

// writeReports renders the markdown report and CSVs into the output dir.
func writeReports(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := map[string]string{
		"REPORT.md":       reporting.RenderMarkdown(report),
		"allocations.csv": reporting.RenderAllocationsCSV(report),
		"trades.csv":      reporting.RenderTradesCSV(report),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// parseWeights parses symbol=weight pairs. Empty input defaults to an
// equal-weight current portfolio over the universe.
func parseWeights(input string, assets []string) (domain.Weights, error) {
	weights := make(domain.Weights, len(assets))
	if input == "" {
		if len(assets) == 0 {
			return weights, nil
		}
		for _, symbol := range assets {
			weights[symbol] = 1 / float64(len(assets))
		}
		return weights, nil
	}

	for _, pair := range splitList(input) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		w, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", parts[0], err)
		}
		weights[parts[0]] = w
	}
	return weights, nil
}

func splitList(input string) []string {
	var out []string
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
