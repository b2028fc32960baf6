package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"studioledger/internal/amqp"
	"studioledger/internal/backend"
	"studioledger/internal/cache"
	"studioledger/internal/cli"
	"studioledger/internal/finance"
	apphttp "studioledger/internal/http"
	"studioledger/internal/log"
	"studioledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startCancel()

	res := cli.OpenBackend(startCtx, logger, cfg)

	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.EventsEnabled() {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			amqpClient = c
			events = c
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewProjectService(res.Backend, events, cfg.DefaultCategories)

	opts := apphttp.Options{
		Thresholds:      cfg.Thresholds,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CacheSize:       cfg.CacheSize,
		CacheTTL:        cfg.CacheTTL,
		TrustedProxies:  cfg.TrustedProxies,
	}
	if p, ok := res.Backend.(backend.Pinger); ok {
		opts.Pinger = p
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(startCtx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process summary cache", log.FieldError, err)
		} else {
			defer rdb.Close()
			opts.SummaryCache = cache.NewRedisCache[finance.ProjectSummary](rdb, "studioledger:summary:", cfg.CacheTTL)
			opts.PortfolioCache = cache.NewRedisCache[apphttp.PortfolioView](rdb, "studioledger:portfolio:", cfg.CacheTTL)
			logger.Info("Using Redis summary cache")
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, opts)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := svc.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting studioledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
