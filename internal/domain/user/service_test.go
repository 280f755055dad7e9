package user_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"loan-tracker/internal/config"
	"loan-tracker/internal/domain/user"
	"loan-tracker/internal/infrastructure/database/memory"
	"loan-tracker/internal/infrastructure/session"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var testAuthConfig = config.AuthConfig{
	Enabled:          true,
	JWTSecret:        "test-secret",
	SessionTTL:       8 * time.Hour,
	PasswordSalt:     "salt",
	MaxLoginAttempts: 3,
	LockoutDuration:  15 * time.Minute,
}

var defaultUser = config.DefaultUserConfig{Username: "Admin", Password: "admin123", Name: "Administrator"}

type fixture struct {
	svc      user.AuthService
	repo     *memory.UserRepository
	sessions *session.MemorySessionStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memory.NewUserRepository()
	sessions := session.NewMemorySessionStore()
	limiter := session.NewMemoryLoginLimiter(testAuthConfig.MaxLoginAttempts, testAuthConfig.LockoutDuration)
	svc := user.NewAuthService(repo, limiter, sessions, testAuthConfig, testLogger)
	require.NoError(t, svc.EnsureDefaultUser(context.Background(), defaultUser))
	return fixture{svc: svc, repo: repo, sessions: sessions}
}

func TestHashPassword(t *testing.T) {
	h := user.HashPassword("admin123", "salt")
	assert.Len(t, h, 64)
	assert.Equal(t, h, user.HashPassword("admin123", "salt"))
	assert.NotEqual(t, h, user.HashPassword("admin123", "pepper"))
}

func TestEnsureDefaultUser_OnlyWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureDefaultUser(ctx, config.DefaultUserConfig{Username: "other", Password: "x"}))

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, user.HashPassword("admin123", "salt"), users[0].PasswordHash)
}

func TestLogin_VerifyLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "ADMIN", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "admin", res.User.Username)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), res.ExpiresAt, time.Minute)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.String(), claims.Subject)
	assert.Equal(t, res.SessionID, claims.ID)

	u, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)

	require.NoError(t, f.svc.Logout(ctx, res.Token))
	_, err = f.svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerify_RejectsForeignToken(t *testing.T) {
	f := newFixture(t)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "whoever",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), forged)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.svc.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "2 attempts remaining")

	_, err = f.svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.svc.Login(ctx, "admin", "wrong")
	var locked *apperrors.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, "admin", locked.Username)
	assert.True(t, locked.LockedUntil.After(time.Now()))

	_, err = f.svc.Login(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, apperrors.ErrAccountLocked, "correct password is refused while locked")
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 2 {
		_, err := f.svc.Login(ctx, "admin", "wrong")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
	_, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "admin", "wrong")
	assert.Contains(t, err.Error(), "2 attempts remaining")
}

func TestLogin_UnknownUserCountsAsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "ghost", "x")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "2 attempts remaining")

	_, err = f.svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
