// Package session holds the login throttle and session stores used by the auth
// service, backed either by process memory or by Redis.
package session

import (
	"context"
	"sync"
	"time"

	"loan-tracker/internal/domain/user"
)

type attemptState struct {
	failures    int
	lockedUntil time.Time
}

type MemoryLoginLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*attemptState
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

var _ user.LoginLimiter = (*MemoryLoginLimiter)(nil)

func NewMemoryLoginLimiter(maxAttempts int, lockout time.Duration) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		attempts:    make(map[string]*attemptState),
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         time.Now,
	}
}

func (l *MemoryLoginLimiter) LockedUntil(_ context.Context, username string) (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.attempts[username]
	if !ok || st.lockedUntil.IsZero() {
		return time.Time{}, nil
	}
	if !l.now().Before(st.lockedUntil) {
		delete(l.attempts, username)
		return time.Time{}, nil
	}
	return st.lockedUntil, nil
}

func (l *MemoryLoginLimiter) RecordFailure(_ context.Context, username string) (int, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.attempts[username]
	if !ok {
		st = &attemptState{}
		l.attempts[username] = st
	}
	st.failures++
	if st.failures >= l.maxAttempts {
		st.failures = 0
		st.lockedUntil = l.now().Add(l.lockout)
		return 0, st.lockedUntil, nil
	}
	return l.maxAttempts - st.failures, time.Time{}, nil
}

func (l *MemoryLoginLimiter) Reset(_ context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, username)
	return nil
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]user.Session
	now      func() time.Time
}

var _ user.SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]user.Session), now: time.Now}
}

func (s *MemorySessionStore) Create(_ context.Context, session user.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, existing := range s.sessions {
		if !now.Before(existing.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *MemorySessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	return ok && s.now().Before(session.ExpiresAt), nil
}

func (s *MemorySessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
