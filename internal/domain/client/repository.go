package client

import (
	"context"
	"fmt"

	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = fmt.Errorf("client %w", apperrors.ErrNotFound)

	ErrDuplicateDocument = fmt.Errorf("client document %w", apperrors.ErrAlreadyExists)

	ErrClientHasActiveLoans = fmt.Errorf("client has active or overdue loans: %w", apperrors.ErrConflict)
)

type ClientRepository interface {
	Create(ctx context.Context, client *Client) error

	Update(ctx context.Context, client *Client) error

	FindByID(ctx context.Context, clientID uuid.UUID) (*Client, error)

	// FindAll returns clients newest first.
	FindAll(ctx context.Context, activeOnly bool) ([]*Client, error)

	Delete(ctx context.Context, clientID uuid.UUID) error

	SetActiveStatus(ctx context.Context, clientID uuid.UUID, isActive bool) error
}

// ActiveLoanChecker reports whether a client still has loans in state active or overdue.
// Implemented by the loan repositories.
type ActiveLoanChecker interface {
	HasActiveLoans(ctx context.Context, clientID uuid.UUID) (bool, error)
}
