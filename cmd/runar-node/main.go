// Package main implements the runar-node binary: it loads configuration,
// boots a node with the built-in registry service, optionally serves
// Prometheus metrics, and runs until a shutdown signal arrives. Services
// beyond the built-ins are added by embedders; the binary itself stays thin.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/runar-labs/runar-node/config"
	"github.com/runar-labs/runar-node/metric"
	"github.com/runar-labs/runar-node/node"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "runar-node"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("node failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI flags win over file and environment
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("configuration is valid", "config", cliCfg.ConfigPath)
		return nil
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("starting node",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"node_name", cfg.Node.Name)

	var metricsRegistry *metric.MetricsRegistry
	nodeOpts := []node.Option{
		node.WithName(cfg.Node.Name),
		node.WithLogger(logger),
		node.WithStopTimeout(cfg.Node.StopTimeout.Std()),
		node.WithRequestTimeout(cfg.Node.RequestTimeout.Std()),
	}
	if cfg.Metrics.Enabled {
		metricsRegistry = metric.NewMetricsRegistry()
		nodeOpts = append(nodeOpts, node.WithMetricsRegistry(metricsRegistry))
	}

	n, err := node.New(nodeOpts...)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	ctx := context.Background()
	if err := n.Init(ctx); err != nil {
		return fmt.Errorf("init node: %w", err)
	}
	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	metricsServer := startMetricsServer(cfg, metricsRegistry)

	return waitForShutdown(ctx, n, metricsServer, cliCfg.ShutdownTimeout)
}

// startMetricsServer boots the metrics endpoint when enabled
func startMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry) *metric.Server {
	if !cfg.Metrics.Enabled || registry == nil {
		return nil
	}

	server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	go func() {
		slog.Info("metrics server listening", "address", server.Address())
		if err := server.Start(); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return server
}

// waitForShutdown blocks until a signal arrives, then stops everything
func waitForShutdown(ctx context.Context, n *node.Node, metricsServer *metric.Server, timeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	slog.Info("node running", "services", len(n.Services()))
	<-signalCtx.Done()
	slog.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			slog.Warn("metrics server stop failed", "error", err)
		}
	}

	if err := n.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
