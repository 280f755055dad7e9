package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type ClientRepository struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]client.Client
}

var _ client.ClientRepository = (*ClientRepository)(nil)

func NewClientRepository() *ClientRepository {
	return &ClientRepository{clients: make(map[uuid.UUID]client.Client)}
}

// documentTaken must be called with mu held.
func (r *ClientRepository) documentTaken(document string, except uuid.UUID) bool {
	for id, c := range r.clients {
		if id != except && c.Document == document {
			return true
		}
	}
	return false
}

func (r *ClientRepository) Create(_ context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ID]; exists || r.documentTaken(c.Document, c.ID) {
		return fmt.Errorf("client %s: %w", c.Document, apperrors.ErrAlreadyExists)
	}
	r.clients[c.ID] = *c
	return nil
}

func (r *ClientRepository) Update(_ context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c.ID]; !ok {
		return apperrors.ErrNotFound
	}
	if r.documentTaken(c.Document, c.ID) {
		return fmt.Errorf("client %s: %w", c.Document, apperrors.ErrAlreadyExists)
	}
	r.clients[c.ID] = *c
	return nil
}

func (r *ClientRepository) FindByID(_ context.Context, clientID uuid.UUID) (*client.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (r *ClientRepository) FindAll(_ context.Context, activeOnly bool) ([]*client.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*client.Client, 0, len(r.clients))
	for _, c := range r.clients {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *client.Client) int { return b.RegisteredAt.Compare(a.RegisteredAt) })
	return out, nil
}

func (r *ClientRepository) Delete(_ context.Context, clientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.clients, clientID)
	return nil
}

func (r *ClientRepository) SetActiveStatus(_ context.Context, clientID uuid.UUID, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.Active = isActive
	c.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	r.clients[clientID] = c
	return nil
}
