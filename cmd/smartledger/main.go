package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"smartledger/internal/cli"
	apphttp "smartledger/internal/http"
	applog "smartledger/internal/log"
	"smartledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel())

	ctx := context.Background()

	storeRes, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	extractor, err := cli.InitExtractor(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize extractor", "error", err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}

	// A nil *amqp.Client must not end up inside the Publisher interface.
	var publisher services.Publisher
	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without sync messages", "error", err)
	} else if amqpClient != nil {
		publisher = amqpClient
	}

	svc := services.NewExpenseService(extractor, storeRes.Store, publisher)

	opts := []apphttp.Option{
		apphttp.WithLogger(applog.New(applog.Config{Level: cfg.SlogLevel(), Component: applog.ComponentHTTP})),
		apphttp.WithClock(func() time.Time { return time.Now().In(cfg.Location()) }),
	}
	if p, ok := storeRes.Store.(interface{ Ping(context.Context) error }); ok {
		opts = append(opts, apphttp.WithReadiness(p.Ping))
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, opts...)

	// A request may wait on two generator calls.
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2*cfg.LLMTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if err := storeRes.Cleanup(); err != nil {
			logger.Warn("Storage close error", "error", err)
		}
	})

	logger.Info("Starting smartledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"provider", cfg.LLMProvider,
		"few_shot", cfg.FewShot,
		"sync_messages", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
