package memory

import (
	"context"
	"slices"
	"sync"

	"loan-tracker/internal/domain/user"

	"github.com/google/uuid"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]user.User
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]user.User)}
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if user.NormalizeUsername(existing.Username) == user.NormalizeUsername(u.Username) {
			return user.ErrDuplicateUsername
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := user.NormalizeUsername(username)
	for _, u := range r.users {
		if user.NormalizeUsername(u.Username) == key {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *UserRepository) FindByID(_ context.Context, userID uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) List(_ context.Context) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, &u)
	}
	slices.SortFunc(out, func(a, b *user.User) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (r *UserRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
