package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrNotFound          = fmt.Errorf("user %w", apperrors.ErrNotFound)
	ErrDuplicateUsername = fmt.Errorf("username %w", apperrors.ErrAlreadyExists)
)

const (
	pbkdf2Iterations = 1000
	pbkdf2KeyLength  = 32
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HashPassword derives the stored password hash: PBKDF2-SHA256, 1000 iterations,
// 32-byte key, hex encoded.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// NormalizeUsername is the key used for lookups and login throttling.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type Repository interface {
	Create(ctx context.Context, user *User) error

	// FindByUsername matches case-insensitively.
	FindByUsername(ctx context.Context, username string) (*User, error)

	FindByID(ctx context.Context, userID uuid.UUID) (*User, error)

	List(ctx context.Context) ([]*User, error)

	Count(ctx context.Context) (int, error)
}

// LoginLimiter tracks failed logins per normalized username.
type LoginLimiter interface {
	// LockedUntil returns the end of an active lockout, or the zero time.
	LockedUntil(ctx context.Context, username string) (time.Time, error)

	// RecordFailure counts a failed attempt and returns the attempts left before a
	// lockout together with the lockout end once one starts.
	RecordFailure(ctx context.Context, username string) (remaining int, lockedUntil time.Time, err error)

	Reset(ctx context.Context, username string) error
}

type Session struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

type SessionStore interface {
	Create(ctx context.Context, session Session) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
}
