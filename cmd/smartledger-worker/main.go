package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"smartledger/internal/backend"
	"smartledger/internal/cli"
	"smartledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel())

	logger.Info("Starting smartledger-worker")

	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Warn("Worker is running against a non-persistent store, nothing written by the server will be visible",
			"backend", cfg.DataBackend)
	}

	initCtx := context.Background()
	storeRes, err := cli.InitStore(initCtx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer storeRes.Cleanup()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	sink, err := backend.NewFactory(logger).CreateSink(initCtx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize export sink", "error", err)
		os.Exit(1)
	}

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	syncWorker := worker.NewSyncWorker(storeRes.Store, sink, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.Run(gctx, cfg.SyncInterval)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeExpenseSync(gctx, syncWorker.HandleSyncMessage)
		})
	} else {
		logger.Info("Skipping AMQP message consumption, relying on periodic sync", "interval", cfg.SyncInterval)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
