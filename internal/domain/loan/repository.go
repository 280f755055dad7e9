package loan

import (
	"context"

	"github.com/google/uuid"
)

type LoanFilter struct {
	ClientID *uuid.UUID
	Statuses []LoanStatus
}

// Repository persists loan aggregates. A loan and its installments are always
// written as one unit.
type Repository interface {
	GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// ListLoans returns loans ordered by start date, newest first.
	ListLoans(ctx context.Context, filter LoanFilter) ([]*Loan, error)

	SaveNewLoan(ctx context.Context, loan *Loan) error

	// UpdateLoan replaces the loan and its installments when loan.Version matches the
	// stored version, then increments loan.Version. A stale version yields
	// apperrors.ErrConflict.
	UpdateLoan(ctx context.Context, loan *Loan) error

	SavePayment(ctx context.Context, payment *Payment) error

	// ListPayments returns payments newest first, optionally for one loan.
	ListPayments(ctx context.Context, loanID *uuid.UUID) ([]*Payment, error)

	HasActiveLoans(ctx context.Context, clientID uuid.UUID) (bool, error)
}
