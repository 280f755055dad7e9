// Package lock provides a loan.Locker that serializes loan updates across server
// instances through Redis.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/config"
	"loan-tracker/internal/domain/loan"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	goredislib "github.com/redis/go-redis/v9"
)

const keyPrefix = "loan-lock:"

type RedisLocker struct {
	rs     *redsync.Redsync
	cfg    config.LockConfig
	logger *slog.Logger
}

var _ loan.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client goredislib.UniversalClient, cfg config.LockConfig, logger *slog.Logger) *RedisLocker {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 8 * time.Second
	}
	if cfg.Tries <= 0 {
		cfg.Tries = 32
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		cfg:    cfg,
		logger: logger.With(slog.String("component", "redisLocker")),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, loanID uuid.UUID) (func(), error) {
	m := l.rs.NewMutex(keyPrefix+loanID.String(),
		redsync.WithExpiry(l.cfg.Expiry),
		redsync.WithTries(l.cfg.Tries),
	)
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock loan %s: %w", loanID, err)
	}

	return func() {
		// The caller's context may already be cancelled.
		if ok, err := m.UnlockContext(context.Background()); err != nil || !ok {
			l.logger.Warn("Failed to release loan lock",
				slog.String("loanID", loanID.String()), slog.Bool("released", ok), slog.Any("error", err))
		}
	}, nil
}
