package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/infrastructure/monitoring"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool is the subset of *pgxpool.Pool the repositories use, so tests can run
// against pgxmock.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var errMsgFormat = "%w: %w"

func beginTx(ctx context.Context, db DBPool, logger *slog.Logger) (pgx.Tx, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func commitTx(ctx context.Context, tx pgx.Tx, logger *slog.Logger) error {
	if err := tx.Commit(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

// rollbackTx is deferred after beginTx; a committed tx makes it a no-op.
func rollbackTx(ctx context.Context, tx pgx.Tx, logger *slog.Logger) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("error", err))
	}
}

func observeQuery(name string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery(name, status, time.Since(start))
}

func translateDBError(err error, logger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			logger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			logger.Warn("Database foreign key violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, pgErr.ConstraintName)
		}

		logger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return apperrors.WrapDatabaseError(pgErr, "database error code "+pgErr.Code)
	}

	logger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
