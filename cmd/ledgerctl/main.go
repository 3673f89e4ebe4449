// Package main implements ledgerctl, a command-line front end for recording
// and querying expenses without the web dashboard.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartledger/internal/cli"
	"smartledger/internal/config"
	"smartledger/internal/services"
)

var (
	outputJSON bool
	verbose    bool
	version    = "dev"
)

// newService opens the configured store and, when withExtractor is set, the
// generator. Tests replace it with an in-memory service.
var newService = func(ctx context.Context, withExtractor bool) (*services.ExpenseService, func(), error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := cli.SetupLogger(level)

	storeRes, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	var extractor services.Extractor
	if withExtractor {
		ex, err := cli.InitExtractor(ctx, cfg)
		if err != nil {
			_ = storeRes.Cleanup()
			return nil, nil, err
		}
		extractor = ex
	}
	svc := services.NewExpenseService(extractor, storeRes.Store, nil)
	return svc, func() { _ = storeRes.Cleanup() }, nil
}

func main() {
	cli.LoadEnvFile()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Record and query expenses from natural language",
	Long: `ledgerctl records expenses described in everyday Chinese sentences and
queries the ledger shared with the smartledger server.

Configuration is read from the environment (and .env), e.g. DATA_BACKEND,
SQLITE_DB_PATH, LLM_PROVIDER, LLM_MODEL.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stdout")
}
