// Package main implements kpiboard, a terminal and HTTP dashboard for the
// business KPIs served by a single metrics API.
//
// kpiboard polls the API on a timer, caches the last response for a short
// throttle window, keeps an hourly MRR history and renders it as a small bar
// chart.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/kpiboard/cmd/kpiboard/config"
	"github.com/HatiCode/kpiboard/cmd/kpiboard/logger"
	"github.com/HatiCode/kpiboard/cmd/kpiboard/metrics"
	"github.com/HatiCode/kpiboard/cmd/kpiboard/router"
	"github.com/HatiCode/kpiboard/cmd/kpiboard/store"
	"github.com/HatiCode/kpiboard/pkg/httpx"
	"github.com/HatiCode/kpiboard/pkg/settings"
	"github.com/HatiCode/kpiboard/pkg/view"
)

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting kpiboard",
		"version", "v0.1.0",
		"listen", cfg.Listen,
		"storage", cfg.Storage,
		"view", cfg.View,
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	kv := store.New(cfg, logger)
	defer func() {
		if err := store.Close(kv); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	var (
		port  view.Port
		state *view.State
	)
	switch cfg.View {
	case "text":
		terminal := view.NewTerminal(os.Stdout)
		port, state = terminal, terminal.State
	default:
		state = view.NewState()
		port = state
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	dashboard := NewDashboard(kv, port, state, m, logger, Options{
		Throttle:     cfg.Throttle,
		Retention:    cfg.Retention,
		FetchTimeout: cfg.FetchTimeout,
		ChartWidth:   cfg.ChartWidth,
		ChartHeight:  cfg.ChartHeight,
		Dedupe:       cfg.DedupeRefresh,
		Seed: settings.Settings{
			APIURL:          cfg.APIURL,
			APIKey:          cfg.APIKey,
			RefreshInterval: cfg.RefreshInterval,
		},
		OnResult: func(err error) {
			status := grpc_health_v1.HealthCheckResponse_SERVING
			if err != nil {
				status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
			healthServer.SetServingStatus("", status)
		},
	})
	defer dashboard.Close()

	var grpcServer *grpc.Server
	if cfg.GRPCListen != "" {
		grpcServer = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)

		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			logger.Error("failed to listen", "address", cfg.GRPCListen, "error", err)
			os.Exit(1)
		}
		go func() {
			logger.Info("grpc health server listening", "address", cfg.GRPCListen)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc server failed", "error", err)
			}
		}()
	}

	mux := router.SetupRoutes(dashboard, prometheus.DefaultGatherer, logger)
	httpServer := httpx.NewServer(cfg.Listen, httpx.LoggingMiddleware(logger)(mux), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dashboard.Init(ctx); err != nil {
		logger.Error("failed to initialize dashboard", "error", err)
		os.Exit(1)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()
	dashboard.Close()

	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}
