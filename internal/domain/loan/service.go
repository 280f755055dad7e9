package loan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"sync"
	"time"

	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/event"
	"loan-tracker/internal/infrastructure/monitoring"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultSweepConcurrency = 8

var ErrNotFound = fmt.Errorf("loan %w", apperrors.ErrNotFound)

type CreateLoanParams struct {
	ClientID         uuid.UUID
	Principal        float64
	InterestRate     float64
	PeriodType       PeriodType
	InstallmentCount int
	StartDate        time.Time
}

type ApplyPaymentParams struct {
	LoanID            uuid.UUID
	Amount            float64
	Date              time.Time
	Type              PaymentType
	InstallmentNumber *int
	Notes             string
}

type LoanService interface {
	CreateLoan(ctx context.Context, params CreateLoanParams) (*Loan, error)

	// GetLoan refreshes the loan's overdue state before returning it.
	GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	ListLoans(ctx context.Context, filter LoanFilter) ([]*Loan, error)

	CancelLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	ApplyPayment(ctx context.Context, params ApplyPaymentParams) (*Payment, error)

	ListPayments(ctx context.Context, loanID *uuid.UUID) ([]*Payment, error)

	DetectOverdueInstallments(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	RefreshOverdueStatus(ctx context.Context, loanID uuid.UUID, now time.Time) (bool, error)

	DashboardMetrics(ctx context.Context) (*DashboardMetrics, error)
}

type Option func(*loanServiceImpl)

// WithClock replaces time.Now for payment dates and post-payment overdue checks.
func WithClock(now func() time.Time) Option {
	return func(s *loanServiceImpl) { s.now = now }
}

func WithSweepConcurrency(n int) Option {
	return func(s *loanServiceImpl) {
		if n > 0 {
			s.sweepConcurrency = n
		}
	}
}

var _ LoanService = (*loanServiceImpl)(nil)

type loanServiceImpl struct {
	repo             Repository
	clients          client.ClientService
	locker           Locker
	pub              event.EventPublisher
	logger           *slog.Logger
	now              func() time.Time
	sweepConcurrency int
}

func NewLoanService(r Repository, cs client.ClientService, locker Locker, pub event.EventPublisher, logger *slog.Logger, opts ...Option) LoanService {
	if r == nil {
		panic("loan repository cannot be nil")
	}
	if cs == nil {
		panic("client service cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if pub == nil {
		pub = event.NopPublisher{}
	}

	s := &loanServiceImpl{
		repo:             r,
		clients:          cs,
		locker:           locker,
		pub:              pub,
		logger:           logger.With(slog.String("component", "loanService")),
		now:              time.Now,
		sweepConcurrency: defaultSweepConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// positiveAmount rejects NaN and infinities along with non-positive values.
func positiveAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func validateCreateParams(p CreateLoanParams) error {
	if !positiveAmount(p.Principal) {
		return apperrors.NewValidationError("principal", "principal must be greater than zero")
	}
	if !(p.InterestRate >= 0) || math.IsInf(p.InterestRate, 0) {
		return apperrors.NewValidationError("interestRate", "interest rate cannot be negative")
	}
	if err := validateInstallmentCount(p.InstallmentCount); err != nil {
		return err
	}
	if _, err := PeriodsPerYear(p.PeriodType); err != nil {
		return err
	}
	if p.StartDate.IsZero() {
		return apperrors.NewValidationError("startDate", "start date is required")
	}
	return nil
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, params CreateLoanParams) (*Loan, error) {
	logger := s.logger.With(slog.String("clientID", params.ClientID.String()))
	logger.InfoContext(ctx, "Creating new loan")

	if err := validateCreateParams(params); err != nil {
		logger.WarnContext(ctx, "Loan validation failed", slog.Any("error", err))
		return nil, err
	}

	c, err := s.clients.GetClient(ctx, params.ClientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Client not found")
			return nil, err
		}
		logger.ErrorContext(ctx, "Failed to get client details from client service", slog.Any("error", err))
		return nil, fmt.Errorf("failed to verify client status: %w", err)
	}
	if !c.Active {
		logger.WarnContext(ctx, "Attempted to create loan for inactive client")
		return nil, apperrors.NewValidationError("clientId", "client is not active")
	}

	periodic, err := ComputePeriodicPayment(params.Principal, params.InterestRate, params.InstallmentCount, params.PeriodType)
	if err != nil {
		return nil, err
	}
	schedule, err := GenerateSchedule(params.StartDate, params.InstallmentCount, params.PeriodType, periodic)
	if err != nil {
		return nil, err
	}

	now := s.now()
	l := &Loan{
		ID:                 uuid.New(),
		ClientID:           c.ID,
		ClientName:         c.FullName(),
		Principal:          params.Principal,
		InterestRate:       params.InterestRate,
		PeriodType:         params.PeriodType,
		InstallmentCount:   params.InstallmentCount,
		TotalInstallments:  params.InstallmentCount,
		StartDate:          params.StartDate,
		DueDate:            schedule[len(schedule)-1].DueDate,
		Status:             StatusActive,
		OutstandingBalance: params.Principal,
		PeriodicPayment:    periodic,
		PaidInstallments:   0,
		Installments:       schedule,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.SaveNewLoan(ctx, l); err != nil {
		logger.ErrorContext(ctx, "Failed to save loan and schedule", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save loan and schedule: %w", err)
	}
	monitoring.RecordLoanCreated()

	if pubErr := s.pub.PublishLoanCreated(ctx, event.LoanCreatedEvent{
		LoanID:           l.ID,
		ClientID:         l.ClientID,
		Principal:        l.Principal,
		InterestRate:     l.InterestRate,
		PeriodType:       string(l.PeriodType),
		InstallmentCount: l.InstallmentCount,
		PeriodicPayment:  l.PeriodicPayment,
		DueDate:          l.DueDate,
		Timestamp:        now,
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Loan created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Loan created successfully", slog.String("loanID", l.ID.String()))
	return l, nil
}

func (s *loanServiceImpl) getLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	l, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to get loan %s: %w", loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	l, _, err := s.refreshOverdue(ctx, loanID, s.now())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", slog.String("loanID", loanID.String()))
		} else {
			s.logger.ErrorContext(ctx, "Failed to get loan", slog.String("loanID", loanID.String()), slog.Any("error", err))
		}
		return nil, err
	}
	return l, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context, filter LoanFilter) ([]*Loan, error) {
	loans, err := s.repo.ListLoans(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *loanServiceImpl) CancelLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	logger := s.logger.With(slog.String("loanID", loanID.String()))
	logger.InfoContext(ctx, "Cancelling loan")

	unlock, err := s.locker.Lock(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock loan %s: %w", loanID, err)
	}
	defer unlock()

	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	oldStatus := l.Status
	now := s.now()
	if err := l.Cancel(now); err != nil {
		logger.WarnContext(ctx, "Loan cannot be cancelled", slog.String("status", string(oldStatus)))
		return nil, err
	}
	if err := s.repo.UpdateLoan(ctx, l); err != nil {
		logger.ErrorContext(ctx, "Failed to persist cancelled loan", slog.Any("error", err))
		return nil, fmt.Errorf("failed to cancel loan %s: %w", loanID, err)
	}

	s.publishStatusChanged(ctx, l, oldStatus, now)
	logger.InfoContext(ctx, "Loan cancelled")
	return l, nil
}

func (s *loanServiceImpl) ApplyPayment(ctx context.Context, params ApplyPaymentParams) (payment *Payment, err error) {
	logger := s.logger.With(slog.String("loanID", params.LoanID.String()), slog.Float64("amount", params.Amount))
	logger.InfoContext(ctx, "Applying payment", slog.String("type", string(params.Type)))

	defer func() {
		status := "success"
		var recorded *apperrors.PaymentRecordedError
		switch {
		case err == nil:
		case errors.As(err, &recorded):
			status = "failure_loan_update"
		case errors.Is(err, apperrors.ErrValidation):
			status = "failure_validation"
		case errors.Is(err, apperrors.ErrNotFound):
			status = "failure_not_found"
		default:
			status = "failure_internal"
		}
		monitoring.RecordPayment(string(params.Type), status)
	}()

	if !positiveAmount(params.Amount) {
		return nil, apperrors.NewValidationErrorWithCause("amount", "payment amount must be greater than zero", apperrors.ErrInvalidPaymentAmount)
	}
	if _, err := ParsePaymentType(string(params.Type)); err != nil {
		return nil, err
	}
	if params.Type == PaymentInstallment && params.InstallmentNumber == nil {
		return nil, apperrors.NewValidationError("installmentNumber", "installment payments require an installment number")
	}

	unlock, err := s.locker.Lock(ctx, params.LoanID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock loan %s: %w", params.LoanID, err)
	}
	defer unlock()

	l, err := s.getLoan(ctx, params.LoanID)
	if err != nil {
		logger.WarnContext(ctx, "Payment rejected, loan lookup failed", slog.Any("error", err))
		return nil, err
	}
	if err := l.CheckPayable(params.Type, params.InstallmentNumber); err != nil {
		logger.WarnContext(ctx, "Payment rejected", slog.Any("error", err))
		return nil, err
	}

	now := s.now()
	date := params.Date
	if date.IsZero() {
		date = now
	}
	p := &Payment{
		ID:                uuid.New(),
		LoanID:            l.ID,
		ClientID:          l.ClientID,
		ClientName:        l.ClientName,
		Amount:            params.Amount,
		Date:              date,
		Type:              params.Type,
		InstallmentNumber: params.InstallmentNumber,
		Notes:             params.Notes,
		CreatedAt:         now,
	}
	if err := s.repo.SavePayment(ctx, p); err != nil {
		logger.ErrorContext(ctx, "Failed to record payment", slog.Any("error", err))
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	oldStatus := l.Status
	l.ApplyPayment(p, now)

	if err := s.repo.UpdateLoan(ctx, l); err != nil {
		logger.ErrorContext(ctx, "Payment recorded but loan update failed", slog.String("paymentID", p.ID.String()), slog.Any("error", err))
		return p, &apperrors.PaymentRecordedError{PaymentID: p.ID, LoanID: l.ID, Cause: err}
	}

	if pubErr := s.pub.PublishPaymentRecorded(ctx, event.PaymentRecordedEvent{
		PaymentID:          p.ID,
		LoanID:             l.ID,
		ClientID:           l.ClientID,
		Amount:             p.Amount,
		Type:               string(p.Type),
		InstallmentNumber:  p.InstallmentNumber,
		OutstandingBalance: l.OutstandingBalance,
		Timestamp:          now,
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Payment recorded, but FAILED to publish event", slog.Any("error", pubErr))
	}
	s.publishStatusChanged(ctx, l, oldStatus, now)

	logger.InfoContext(ctx, "Payment applied", slog.String("paymentID", p.ID.String()),
		slog.Float64("outstanding", l.OutstandingBalance), slog.String("status", string(l.Status)))
	return p, nil
}

func (s *loanServiceImpl) ListPayments(ctx context.Context, loanID *uuid.UUID) ([]*Payment, error) {
	payments, err := s.repo.ListPayments(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *loanServiceImpl) RefreshOverdueStatus(ctx context.Context, loanID uuid.UUID, now time.Time) (bool, error) {
	_, changed, err := s.refreshOverdue(ctx, loanID, now)
	return changed, err
}

func (s *loanServiceImpl) refreshOverdue(ctx context.Context, loanID uuid.UUID, now time.Time) (*Loan, bool, error) {
	unlock, err := s.locker.Lock(ctx, loanID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock loan %s: %w", loanID, err)
	}
	defer unlock()

	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, false, err
	}

	oldStatus := l.Status
	if !l.MarkOverdue(now) {
		return l, false, nil
	}
	if err := s.repo.UpdateLoan(ctx, l); err != nil {
		return nil, false, fmt.Errorf("failed to persist overdue state of loan %s: %w", loanID, err)
	}

	s.publishStatusChanged(ctx, l, oldStatus, now)
	return l, true, nil
}

// DetectOverdueInstallments refreshes every active or overdue loan and returns the ids
// of the loans that changed. A failure on one loan does not stop the others; all
// failures are joined into the returned error.
func (s *loanServiceImpl) DetectOverdueInstallments(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	loans, err := s.repo.ListLoans(ctx, LoanFilter{Statuses: []LoanStatus{StatusActive, StatusOverdue}})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans for overdue detection", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans for overdue detection: %w", err)
	}

	var (
		mu       sync.Mutex
		affected []uuid.UUID
		errs     []error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.sweepConcurrency)
	for _, l := range loans {
		loanID := l.ID
		g.Go(func() error {
			changed, err := s.RefreshOverdueStatus(ctx, loanID, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.ErrorContext(ctx, "Overdue check failed for loan", slog.String("loanID", loanID.String()), slog.Any("error", err))
				errs = append(errs, err)
				return nil
			}
			if changed {
				affected = append(affected, loanID)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(affected, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	s.logger.InfoContext(ctx, "Overdue detection finished",
		slog.Int("loans_checked", len(loans)), slog.Int("loans_changed", len(affected)), slog.Int("errors", len(errs)))
	return affected, errors.Join(errs...)
}

func (s *loanServiceImpl) publishStatusChanged(ctx context.Context, l *Loan, oldStatus LoanStatus, now time.Time) {
	if l.Status == oldStatus {
		return
	}
	err := s.pub.PublishLoanStatusChanged(ctx, event.LoanStatusChangedEvent{
		LoanID:             l.ID,
		ClientID:           l.ClientID,
		OldStatus:          string(oldStatus),
		NewStatus:          string(l.Status),
		OutstandingBalance: l.OutstandingBalance,
		Timestamp:          now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan status change", slog.String("loanID", l.ID.String()), slog.Any("error", err))
	}
}
