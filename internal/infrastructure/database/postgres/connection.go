package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns = 10
	applicationName = "loan-tracker"
	pingTimeout     = 5 * time.Second
)

// NewConnectionPool opens a pgx pool for the configured URL and pings it once.
// Sessions run in UTC so due dates and payment timestamps read back unchanged.
func NewConnectionPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is empty in configuration")
	}

	poolConfig, err := configurePool(cfg)
	if err != nil {
		return nil, err
	}
	connLogger := logger.With(
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("db", poolConfig.ConnConfig.Database),
		slog.Int("maxConns", int(poolConfig.MaxConns)),
	)

	connLogger.Info("Connecting to PostgreSQL...")
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := verifyConnection(ctx, pool, connLogger); err != nil {
		pool.Close()
		return nil, err
	}

	connLogger.Info("PostgreSQL pool ready.")
	return pool, nil
}

func configurePool(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	params := poolConfig.ConnConfig.RuntimeParams
	params["timezone"] = "UTC"
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}

	return poolConfig, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func verifyConnection(ctx context.Context, db pinger, logger *slog.Logger) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Ping(pingCtx); err != nil {
		logger.Error("Failed to ping database", slog.Any("error", err))
		return fmt.Errorf("failed to ping database on connect: %w", err)
	}
	return nil
}
