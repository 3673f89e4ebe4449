// Package cli provides common initialization shared by cmd/smartledger,
// cmd/smartledger-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smartledger/internal/amqp"
	"smartledger/internal/backend"
	"smartledger/internal/config"
	"smartledger/internal/extract"
	"smartledger/internal/llm"
	applog "smartledger/internal/log"
)

// SetupLogger initializes structured logging at level and installs it as
// the default logger.
func SetupLogger(level slog.Level) *slog.Logger {
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentApp})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the configured expense store. The returned cleanup is
// never nil.
func InitStore(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.StoreResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateStore(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	if res.Cleanup == nil {
		res.Cleanup = func() error { return nil }
	}
	return res, nil
}

// InitExtractor builds the extraction pipeline on top of the configured
// generator. "Today" is evaluated in cfg's time zone on every call.
func InitExtractor(ctx context.Context, cfg *config.Config) (*extract.Extractor, error) {
	gen, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
		Timeout:  cfg.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}

	builder := extract.NewBuilder()
	if !cfg.FewShot {
		builder = &extract.Builder{}
	}
	loc := cfg.Location()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentExtract)

	return extract.New(gen,
		extract.WithBuilder(builder),
		extract.WithClock(func() time.Time { return time.Now().In(loc) }),
		extract.WithLogger(logger.Logger),
	), nil
}

// InitAMQP connects to the broker when AMQP_URL is set. A nil client with a
// nil error means sync messaging is disabled.
func InitAMQP(logger *slog.Logger, cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP_URL not set, sync messaging disabled")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP broker: %w", err)
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
