// Package memory holds map-backed repositories for the memory database driver and
// for tests. Every read and write copies the aggregate so callers never share state
// with the store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type LoanRepository struct {
	mu       sync.RWMutex
	loans    map[uuid.UUID]*loan.Loan
	payments []*loan.Payment
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository() *LoanRepository {
	return &LoanRepository{loans: make(map[uuid.UUID]*loan.Loan)}
}

func (r *LoanRepository) GetLoan(_ context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.loans[loanID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return l.Clone(), nil
}

func (r *LoanRepository) ListLoans(_ context.Context, filter loan.LoanFilter) ([]*loan.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*loan.Loan, 0, len(r.loans))
	for _, l := range r.loans {
		if filter.ClientID != nil && l.ClientID != *filter.ClientID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, l.Status) {
			continue
		}
		out = append(out, l.Clone())
	}
	slices.SortFunc(out, func(a, b *loan.Loan) int { return b.StartDate.Compare(a.StartDate) })
	return out, nil
}

func (r *LoanRepository) SaveNewLoan(_ context.Context, l *loan.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.loans[l.ID]; exists {
		return fmt.Errorf("loan %s: %w", l.ID, apperrors.ErrAlreadyExists)
	}
	r.loans[l.ID] = l.Clone()
	return nil
}

func (r *LoanRepository) UpdateLoan(_ context.Context, l *loan.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.loans[l.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != l.Version {
		return fmt.Errorf("loan %s at version %d, update based on %d: %w", l.ID, stored.Version, l.Version, apperrors.ErrConflict)
	}
	l.Version++
	r.loans[l.ID] = l.Clone()
	return nil
}

func (r *LoanRepository) SavePayment(_ context.Context, p *loan.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.payments = append(r.payments, &cp)
	return nil
}

func (r *LoanRepository) ListPayments(_ context.Context, loanID *uuid.UUID) ([]*loan.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*loan.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		if loanID != nil && p.LoanID != *loanID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *loan.Payment) int { return b.Date.Compare(a.Date) })
	return out, nil
}

func (r *LoanRepository) HasActiveLoans(_ context.Context, clientID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.loans {
		if l.ClientID == clientID && (l.Status == loan.StatusActive || l.Status == loan.StatusOverdue) {
			return true, nil
		}
	}
	return false, nil
}
