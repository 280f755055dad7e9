// Command importer loads a legacy JSON export into the PostgreSQL database,
// applying schema migrations first.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"loan-tracker/internal/config"
	"loan-tracker/internal/importer"
	"loan-tracker/internal/infrastructure/database/postgres"
	"loan-tracker/internal/infrastructure/logging"
)

func main() {
	file := flag.String("file", "data-export.json", "path to the legacy JSON export")
	configPath := flag.String("config", ".", "directory holding config.yml")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall import timeout")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	if err := run(cfg, *file, *timeout, logger); err != nil {
		logger.Error("Import failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, file string, timeout time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Running database migrations...")
	if err := postgres.MigrateURL(cfg.Database.URL); err != nil {
		return err
	}

	pool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	summary, err := importer.New(pool, logger).Import(ctx, f)
	if err != nil {
		return err
	}
	logger.Info("Import finished",
		slog.String("file", file),
		slog.Int("users", summary.Users),
		slog.Int("clients", summary.Clients),
		slog.Int("loans", summary.Loans),
		slog.Int("payments", summary.Payments),
	)
	return nil
}
