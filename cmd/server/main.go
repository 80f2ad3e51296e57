// Command server is the entry point for the tagboard API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tagboard/internal/bootstrap"
	"tagboard/internal/config"
	"tagboard/internal/middleware"
	"tagboard/internal/observability"
	"tagboard/internal/server"
)

const serviceName = "tagboard-api"

func main() {
	seedDemo := flag.Bool("seed-demo", false, "Seed demo data into an empty development database")
	flag.Parse()

	if err := run(*seedDemo); err != nil {
		middleware.Logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(seedDemo bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			middleware.Logger.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	rt, err := bootstrap.Start(ctx, cfg, bootstrap.Options{
		SeedDemoData: seedDemo && cfg.Env == "development",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	middleware.Logger.Info("server starting",
		slog.String("port", cfg.Port), slog.String("env", cfg.Env), slog.Bool("redis", rt.Redis != nil))
	return server.New(cfg, rt.DB, rt.Redis).Serve(ctx)
}
