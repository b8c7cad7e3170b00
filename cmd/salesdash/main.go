package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/amqp"
	"salesdash/internal/backend"
	"salesdash/internal/cache"
	"salesdash/internal/cli"
	apphttp "salesdash/internal/http"
	"salesdash/internal/log"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	clock, err := cfg.Clock()
	if err != nil {
		logger.Error("Invalid clock configuration", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backends", log.FieldError, err,
			"user_store", backendCfg.UserStore)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	dashboard := services.NewDashboardService(result.Sources, services.Options{
		Clock:        clock,
		TargetSchema: cfg.TargetSchema(),
		CacheTTL:     cfg.CacheTTL,
		Logger:       logger,
	})
	auth := services.NewAuthService(result.Users, logger)

	caches := cache.NewManager(logger)
	for _, c := range dashboard.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(cfg.CacheCleanupInterval)

	// Optional refresh bus; each replica binds its own queue to the fanout
	var (
		amqpClient *amqp.Client
		publisher  apphttp.Publisher
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, refreshes stay local", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP refresh bus enabled", "exchange", cfg.AMQPExchange, "queue_prefix", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - refreshes only affect this instance")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Dashboard: dashboard,
		Auth:      auth,
		Publisher: publisher,
		Logger:    logger,
		AuthRate: ratelimit.Config{
			RequestsPerMinute: cfg.AuthRatePerMinute,
			Burst:             cfg.AuthBurst,
		},
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
	})

	// Warm the dataset so the first page view does not pay for the load.
	go dashboard.Dataset(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting salesdash server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeRefresh(gctx, func(ctx context.Context, msg *amqp.RefreshMessage) error {
				logger.InfoContext(ctx, "Refresh requested",
					log.FieldOperation, log.OpRefresh,
					"reason", msg.Reason)
				dashboard.Refresh(ctx)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Refresh consumer stopped, refreshes stay local",
					log.FieldOperation, log.OpConsume,
					log.FieldError, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
