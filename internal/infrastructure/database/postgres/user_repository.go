package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-tracker/internal/domain/user"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, name, email, created_at`

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger.With("component", "UserRepository")}
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.Name, u.Email, u.CreatedAt); err != nil {
		err = translateDBError(err, r.logger)
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return user.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*user.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query user", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findOne(ctx, "LOWER(username) = LOWER($1)", user.NormalizeUsername(username))
}

func (r *UserRepository) FindByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return r.findOne(ctx, "id = $1", userID)
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query users", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return n, nil
}
