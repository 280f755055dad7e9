package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/config"
	"loan-tracker/internal/infrastructure/monitoring"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthorized)

type LoginResult struct {
	Token     string
	User      *User
	ExpiresAt time.Time
	SessionID string
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*User, error)
	EnsureDefaultUser(ctx context.Context, defaults config.DefaultUserConfig) error
	ListUsers(ctx context.Context) ([]*User, error)
}

var _ AuthService = (*authService)(nil)

type authService struct {
	repo     Repository
	limiter  LoginLimiter
	sessions SessionStore
	cfg      config.AuthConfig
	now      func() time.Time
	logger   *slog.Logger
}

func NewAuthService(repo Repository, limiter LoginLimiter, sessions SessionStore, cfg config.AuthConfig, logger *slog.Logger) AuthService {
	if repo == nil || limiter == nil || sessions == nil || logger == nil {
		panic("AuthService dependencies cannot be nil")
	}
	return &authService{
		repo:     repo,
		limiter:  limiter,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "authService")),
	}
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *authService) Login(ctx context.Context, username, password string) (result *LoginResult, err error) {
	key := NormalizeUsername(username)
	logger := s.logger.With(slog.String("username", key))

	defer func() {
		status := "success"
		switch {
		case errors.Is(err, apperrors.ErrAccountLocked):
			status = "locked"
		case errors.Is(err, apperrors.ErrUnauthorized):
			status = "invalid_credentials"
		case err != nil:
			status = "error"
		}
		monitoring.RecordLoginAttempt(status)
	}()

	if key == "" || password == "" {
		return nil, apperrors.NewValidationError("username", "username and password are required")
	}

	lockedUntil, err := s.limiter.LockedUntil(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check login lockout: %w", err)
	}
	if !lockedUntil.IsZero() {
		logger.WarnContext(ctx, "Login attempt on locked account", slog.Time("lockedUntil", lockedUntil))
		return nil, &apperrors.LockedError{Username: key, LockedUntil: lockedUntil}
	}

	u, err := s.repo.FindByUsername(ctx, key)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		logger.ErrorContext(ctx, "Failed to look up user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if u == nil || subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(HashPassword(password, s.cfg.PasswordSalt))) != 1 {
		return nil, s.recordFailure(ctx, key)
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		logger.WarnContext(ctx, "Failed to reset login attempts", slog.Any("error", err))
	}

	session := Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		logger.ErrorContext(ctx, "Failed to create session", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.signToken(u, session)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "User logged in", slog.String("userID", u.ID.String()))
	return &LoginResult{Token: token, User: u, ExpiresAt: session.ExpiresAt, SessionID: session.ID}, nil
}

func (s *authService) recordFailure(ctx context.Context, key string) error {
	remaining, lockedUntil, err := s.limiter.RecordFailure(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record login failure", slog.String("username", key), slog.Any("error", err))
		return ErrInvalidCredentials
	}
	if !lockedUntil.IsZero() {
		s.logger.WarnContext(ctx, "Account locked after repeated failures", slog.String("username", key), slog.Time("lockedUntil", lockedUntil))
		return &apperrors.LockedError{Username: key, LockedUntil: lockedUntil}
	}
	return fmt.Errorf("%w (%d attempts remaining)", ErrInvalidCredentials, remaining)
}

func (s *authService) signToken(u *User, session Session) (string, error) {
	claims := sessionClaims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (s *authService) parseToken(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid session token", apperrors.ErrUnauthorized)
	}
	return claims, nil
}

func (s *authService) Verify(ctx context.Context, token string) (*User, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	ok, err := s.sessions.Exists(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: session expired or revoked", apperrors.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", apperrors.ErrUnauthorized)
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.logger.InfoContext(ctx, "User logged out", slog.String("userID", claims.Subject))
	return nil
}

// EnsureDefaultUser seeds the configured user when no user exists yet.
func (s *authService) EnsureDefaultUser(ctx context.Context, defaults config.DefaultUserConfig) error {
	if defaults.Username == "" || defaults.Password == "" {
		return nil
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	u := &User{
		ID:           uuid.New(),
		Username:     NormalizeUsername(defaults.Username),
		PasswordHash: HashPassword(defaults.Password, s.cfg.PasswordSalt),
		Name:         defaults.Name,
		Email:        defaults.Email,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return fmt.Errorf("failed to create default user: %w", err)
	}
	s.logger.InfoContext(ctx, "Default user created", slog.String("username", u.Username))
	return nil
}

func (s *authService) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
