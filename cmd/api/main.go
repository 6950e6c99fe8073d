// Package main provides the entry point for the placement API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mnemolabs/placement-engine/internal/api"
	"github.com/mnemolabs/placement-engine/internal/engine"
	"github.com/mnemolabs/placement-engine/internal/metrics"
	pgstore "github.com/mnemolabs/placement-engine/internal/store/postgres"
	"github.com/mnemolabs/placement-engine/pkg/config"
	"github.com/mnemolabs/placement-engine/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New(slog.LevelInfo, true)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database store
	storeCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
	store, err := pgstore.NewPostgresStore(storeCfg, log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Build the scoring policy from configuration
	policy, err := engine.PolicyByName(
		cfg.Engine.Policy,
		engine.HeadroomWeights(cfg.Engine.Headroom),
		engine.MarketplaceWeights(cfg.Engine.Marketplace),
	)
	if err != nil {
		log.Error("failed to build scoring policy", "error", err)
		os.Exit(1)
	}

	// Initialize metrics and the placement engine
	m := metrics.New()
	eng := engine.New(store, policy, m, log.Logger)

	// Create and start the API server
	server := api.NewServer(cfg, store, eng, m, store, log.Logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Start the server
	log.Info("starting API server",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
		"policy", policy.Name(),
	)

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// Give time for graceful shutdown
	time.Sleep(100 * time.Millisecond)
	log.Info("server stopped")
}
