// Package main provides the long-running optimizer service:
// - Optimization (scheduled): optimize → decide → plan → persist
// - HTTP: /metrics (Prometheus), /healthz, /status, /report
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"pollen-optimizer/internal/config"
	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/marketdata"
	"pollen-optimizer/internal/observability"
	"pollen-optimizer/internal/optimizer"
	"pollen-optimizer/internal/rebalance"
	"pollen-optimizer/internal/reporting"
	"pollen-optimizer/internal/storage"
	chstore "pollen-optimizer/internal/storage/clickhouse"
	"pollen-optimizer/internal/storage/memory"
	"pollen-optimizer/internal/storage/migrations"
	pgstore "pollen-optimizer/internal/storage/postgres"
	redisstore "pollen-optimizer/internal/storage/redis"
	"pollen-optimizer/internal/strategy"
)

// Server holds all components of the optimizer service.
type Server struct {
	cfg     *config.Config
	service *optimizer.Service
	logger  *log.Logger

	// State
	mu         sync.Mutex
	lastRun    time.Time
	lastError  string
	lastReport *reporting.Report
	runs       int
	running    bool
}

// allStores holds the storage implementations behind the service.
type allStores struct {
	priceHistoryStore storage.PriceHistoryStore
	snapshotStore     storage.SnapshotStore
	allocationStore   storage.AllocationStore
	planStore         storage.RebalancePlanStore
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse/Redis")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}
	if !*useMemory && (cfg.Database.PostgresDSN == "" || cfg.Database.ClickhouseDSN == "") {
		logger.Fatal("postgres_dsn and clickhouse_dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	provider := marketdata.NewStoreProvider(stores.priceHistoryStore, stores.snapshotStore)
	cache := marketdata.NewSnapshotCache(provider, stores.snapshotStore, cfg.MarketData.SnapshotTTL.Std(), logger)

	server := &Server{
		cfg: cfg,
		service: optimizer.New(optimizer.Options{
			Provider:      provider,
			SnapshotCache: cache,
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
			MinTradeSize:    cfg.Rebalance.MinTradeSize,
			LookbackDays:    cfg.Optimization.CorrelationLookback,
			AllocationStore: stores.allocationStore,
			PlanStore:       stores.planStore,
			Logger:          logger,
		}),
		logger: logger,
	}

	// Scheduled optimization cycles
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule.OptimizeCron, func() {
		server.runCycle(ctx)
	}); err != nil {
		logger.Fatalf("Invalid cron expression %q: %v", cfg.Schedule.OptimizeCron, err)
	}
	scheduler.Start()
	logger.Printf("Optimization scheduled: %q (strategy %s, %d assets)",
		cfg.Schedule.OptimizeCron, cfg.Universe.Strategy, len(cfg.Universe.Assets))

	// Initial cycle so /status has data before the first tick
	go server.runCycle(ctx)

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: server.routes(),
	}
	go func() {
		logger.Printf("HTTP listening on %s", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)

	cancel()
	stopCtx := scheduler.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	select {
	case <-stopCtx.Done():
	case <-shutdownCtx.Done():
		logger.Println("Timed out waiting for running cycle")
	}
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Println("Shutdown complete")
}

// runCycle executes one optimization cycle; overlapping runs are skipped.
func (s *Server) runCycle(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("Cycle already running, skipping")
		return
	}
	s.running = true
	currentWeights := s.currentWeightsLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	strategyType, err := domain.ParseStrategyType(s.cfg.Universe.Strategy)
	if err != nil {
		s.recordRun(nil, err)
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	report, err := s.service.Run(cycleCtx, s.cfg.Universe.Assets, currentWeights, strategyType)
	s.recordRun(report, err)
}

// currentWeightsLocked derives the portfolio's current weights: the last
// cycle's targets when available, equal weight on first run. Callers
// must hold s.mu.
func (s *Server) currentWeightsLocked() domain.Weights {
	if s.lastReport != nil {
		return s.lastReport.TargetWeights.Clone()
	}
	weights := make(domain.Weights, len(s.cfg.Universe.Assets))
	for _, symbol := range s.cfg.Universe.Assets {
		weights[symbol] = 1 / float64(len(s.cfg.Universe.Assets))
	}
	return weights
}

func (s *Server) recordRun(report *reporting.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.lastRun = time.Now().UTC()
	if err != nil {
		s.lastError = err.Error()
		s.logger.Printf("Cycle failed: %v", err)
		return
	}
	s.lastError = ""
	s.lastReport = report
	s.logger.Printf("Cycle complete: sharpe %.4f, rebalance %v",
		report.Metrics.SharpeRatio, report.Check.NeedsRebalance)
}

// routes wires the HTTP endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/report", s.handleReport)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := map[string]any{
		"strategy":   s.cfg.Universe.Strategy,
		"assets":     s.cfg.Universe.Assets,
		"runs":       s.runs,
		"last_run":   s.lastRun,
		"last_error": s.lastError,
		"running":    s.running,
	}
	if s.lastReport != nil {
		status["target_weights"] = s.lastReport.TargetWeights
		status["sharpe_ratio"] = s.lastReport.Metrics.SharpeRatio
		status["needs_rebalance"] = s.lastReport.Check.NeedsRebalance
		status["degraded"] = s.lastReport.Degraded
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	report := s.lastReport
	s.mu.Unlock()

	if report == nil {
		http.Error(w, "no report available yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
}

// createStores creates the storage implementations.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			priceHistoryStore: memory.NewPriceHistoryStore(0),
			snapshotStore:     memory.NewSnapshotStore(),
			allocationStore:   memory.NewAllocationStore(),
			planStore:         memory.NewRebalancePlanStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	conn, err := chstore.NewConn(ctx, cfg.Database.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		pool.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	// Redis snapshots, in-memory fallback when not configured
	var snapshotStore storage.SnapshotStore = memory.NewSnapshotStore()
	closeRedis := func() {}
	if cfg.Database.RedisAddr != "" {
		client, err := redisstore.Dial(ctx, cfg.Database.RedisAddr)
		if err != nil {
			pool.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		snapshotStore = redisstore.NewSnapshotStore(client, 0)
		closeRedis = func() { _ = client.Close() }
	}

	stores := &allStores{
		priceHistoryStore: chstore.NewPriceHistoryStore(conn),
		snapshotStore:     snapshotStore,
		allocationStore:   pgstore.NewAllocationStore(pool),
		planStore:         pgstore.NewRebalancePlanStore(pool),
	}
	cleanup := func() {
		closeRedis()
		_ = conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
