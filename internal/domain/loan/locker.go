package loan

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Locker serializes read-modify-write sequences on one loan.
type Locker interface {
	Lock(ctx context.Context, loanID uuid.UUID) (func(), error)
}

type lockEntry struct {
	held chan struct{}
	refs int
}

// KeyedLocker is an in-process Locker. Entries are reference counted and dropped
// once no goroutine holds or waits for them.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

var _ Locker = (*KeyedLocker)(nil)

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[uuid.UUID]*lockEntry)}
}

func (l *KeyedLocker) Lock(ctx context.Context, loanID uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[loanID]
	if !ok {
		e = &lockEntry{held: make(chan struct{}, 1)}
		l.entries[loanID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.held <- struct{}{}:
	case <-ctx.Done():
		l.release(loanID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.held
			l.release(loanID, e)
		})
	}, nil
}

func (l *KeyedLocker) release(loanID uuid.UUID, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, loanID)
	}
}

func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
