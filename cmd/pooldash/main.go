// Package main is the entry point for the pooldash service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/pooldash/business/chainsync"
	"github.com/fd1az/pooldash/business/connectivity"
	"github.com/fd1az/pooldash/business/dashboard"
	"github.com/fd1az/pooldash/business/pools"
	"github.com/fd1az/pooldash/internal/apm"
	"github.com/fd1az/pooldash/internal/config"
	"github.com/fd1az/pooldash/internal/health"
	"github.com/fd1az/pooldash/internal/logger"
	"github.com/fd1az/pooldash/internal/metrics"
	"github.com/fd1az/pooldash/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pooldash %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting pooldash",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Chain.SupportedChainID,
	)

	stopTelemetry, err := startTelemetry(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	checker := health.NewChecker(version)
	healthServer := health.NewServer(cfg.Health.Port, checker, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = healthServer.Stop(sctx)
	}()

	mono, err := monolith.New(cfg, log, checker)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	// Dependency order: pools needs the connection manager, chainsync needs
	// both, dashboard reads everything.
	modules := []monolith.Module{
		&connectivity.Module{},
		&pools.Module{},
		&chainsync.Module{},
		&dashboard.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := mono.Close(sctx); err != nil {
			log.Error(sctx, "shutdown incomplete", "error", err)
		}
	}()

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	api := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mono.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "api server started", "port", cfg.HTTP.Port, "prefix", dashboard.APIPrefix)
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down")
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return api.Shutdown(sctx)
}

// startTelemetry installs the otel trace and meter providers and the
// Prometheus scrape server. The returned func flushes and stops them.
func startTelemetry(ctx context.Context, cfg config.TelemetryConfig, log logger.LoggerInterface) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	headers, err := apm.ParseHeaders(cfg.OTLPHeaders)
	if err != nil {
		return nil, err
	}

	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: cfg.ServiceName,
		Provider:    apm.Provider(cfg.TraceExporter),
		Endpoint:    cfg.OTLPEndpoint,
		Headers:     headers,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	mcfg := metrics.Config{
		ServiceName: cfg.ServiceName,
		Registry:    metrics.NewRegistry(),
	}
	if cfg.OTLPMetrics && cfg.OTLPEndpoint != "" {
		mcfg.OTLP = &metrics.OTLPConfig{Endpoint: cfg.OTLPEndpoint, Headers: headers}
	}

	mp, err := metrics.NewMetricProvider(ctx, mcfg)
	if err != nil {
		_ = tp.Stop(ctx)
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	promServer := metrics.NewPrometheusServer(cfg.PrometheusPort, mcfg.Registry, log)
	promServer.Start()

	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := promServer.Stop(sctx); err != nil {
			log.Warn(sctx, "metrics server shutdown", "error", err)
		}
		if err := mp.Shutdown(sctx); err != nil {
			log.Warn(sctx, "meter provider shutdown", "error", err)
		}
		if err := tp.Stop(sctx); err != nil {
			log.Warn(sctx, "trace provider shutdown", "error", err)
		}
	}, nil
}
