package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MikeSquared-Agency/Intake/internal/api"
	"github.com/MikeSquared-Agency/Intake/internal/broker"
	"github.com/MikeSquared-Agency/Intake/internal/config"
	"github.com/MikeSquared-Agency/Intake/internal/hermes"
	"github.com/MikeSquared-Agency/Intake/internal/metrics"
	"github.com/MikeSquared-Agency/Intake/internal/migrations"
	"github.com/MikeSquared-Agency/Intake/internal/scans"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Migrations
	if cfg.Database.AutoMigrate {
		if err := migrations.RunURL(ctx, cfg.Database.URL); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Hermes (optional)
	var (
		hermesClient hermes.Client
		natsClient   *hermes.NATSClient
	)
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, hermes.Options{
			URL:        cfg.Hermes.URL,
			Name:       "intake",
			QueueGroup: cfg.Hermes.QueueGroup,
		}, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			natsClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	// QR scan counter: redis when configured, otherwise the qr_codes row
	var counter scans.Counter = scans.NewStoreCounter(db)
	var redisCounter *scans.RedisCounter
	if cfg.Redis.Addr != "" {
		rc := scans.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rc.Close()
		redisCounter = scans.NewRedisCounter(rc)
		counter = redisCounter
		logger.Info("using redis scan counter", "addr", cfg.Redis.Addr)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Broker
	b := broker.New(db, hermesClient, counter, m, cfg, logger)
	b.Start(ctx)
	defer b.Stop()
	logger.Info("broker started", "sweep_enabled", cfg.Assignment.SweepEnabled, "sweep_interval", cfg.SweepInterval())

	// Intake requests over NATS
	b.SetupSubscriptions()

	// API server
	router := api.NewRouter(db, b, api.RouterOptions{
		AdminToken:         cfg.Server.AdminToken,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	ready := func() map[string]bool {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		checks := map[string]bool{"database": db.Ping(checkCtx) == nil}
		if natsClient != nil {
			checks["nats"] = natsClient.Connected()
		}
		if redisCounter != nil {
			checks["redis"] = redisCounter.Ping(checkCtx) == nil
		}
		return checks
	}
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(reg, ready),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
