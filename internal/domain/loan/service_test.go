package loan_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/event"
	"loan-tracker/internal/infrastructure/database/memory"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingPublisher struct {
	event.NopPublisher
	mu       sync.Mutex
	created  []event.LoanCreatedEvent
	statuses []event.LoanStatusChangedEvent
	payments []event.PaymentRecordedEvent
}

func (p *recordingPublisher) PublishLoanCreated(_ context.Context, e event.LoanCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return nil
}

func (p *recordingPublisher) PublishLoanStatusChanged(_ context.Context, e event.LoanStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, e)
	return nil
}

func (p *recordingPublisher) PublishPaymentRecorded(_ context.Context, e event.PaymentRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, e)
	return nil
}

// faultyRepository fails selected calls of an otherwise working store.
type faultyRepository struct {
	*memory.LoanRepository
	updateErr  error
	getErrFor  map[uuid.UUID]error
	paymentErr error
}

func (r *faultyRepository) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.LoanRepository.UpdateLoan(ctx, l)
}

func (r *faultyRepository) GetLoan(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	if err, ok := r.getErrFor[id]; ok {
		return nil, err
	}
	return r.LoanRepository.GetLoan(ctx, id)
}

func (r *faultyRepository) SavePayment(ctx context.Context, p *loan.Payment) error {
	if r.paymentErr != nil {
		return r.paymentErr
	}
	return r.LoanRepository.SavePayment(ctx, p)
}

type fixture struct {
	repo    *faultyRepository
	clients client.ClientService
	pub     *recordingPublisher
	svc     loan.LoanService
	client  *client.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: &faultyRepository{LoanRepository: memory.NewLoanRepository(), getErrFor: map[uuid.UUID]error{}},
		pub:  &recordingPublisher{},
	}
	f.clients = client.NewClientService(memory.NewClientRepository(), f.repo, nil, logger)
	f.svc = loan.NewLoanService(f.repo, f.clients, loan.NewKeyedLocker(), f.pub, logger,
		loan.WithClock(func() time.Time { return now }))

	c, err := f.clients.CreateClient(context.Background(), client.Details{FirstName: "Ana", LastName: "Gomez", Document: "V-1"})
	require.NoError(t, err)
	f.client = c
	return f
}

func (f *fixture) createLoan(t *testing.T, principal, rate float64, n int, start time.Time) *loan.Loan {
	t.Helper()
	l, err := f.svc.CreateLoan(context.Background(), loan.CreateLoanParams{
		ClientID:         f.client.ID,
		Principal:        principal,
		InterestRate:     rate,
		PeriodType:       loan.PeriodMonthly,
		InstallmentCount: n,
		StartDate:        start,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) *loan.Loan {
	t.Helper()
	l, err := f.repo.LoanRepository.GetLoan(context.Background(), id)
	require.NoError(t, err)
	return l
}

func intPtr(i int) *int { return &i }

func TestLoanService_CreateLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := setup(t)

		l := f.createLoan(t, 1200, 0, 12, now)

		assert.Equal(t, loan.StatusActive, l.Status)
		assert.Equal(t, 1200.0, l.OutstandingBalance)
		assert.Equal(t, 100.0, l.PeriodicPayment)
		assert.Equal(t, 0, l.PaidInstallments)
		assert.Equal(t, 12, l.TotalInstallments)
		assert.Equal(t, "Ana Gomez", l.ClientName)
		require.Len(t, l.Installments, 12)
		assert.Equal(t, l.Installments[11].DueDate, l.DueDate)
		assert.Equal(t, now.AddDate(0, 12, 0), l.DueDate)

		stored := f.stored(t, l.ID)
		assert.Len(t, stored.Installments, 12)
		require.Len(t, f.pub.created, 1)
		assert.Equal(t, l.ID, f.pub.created[0].LoanID)
	})

	t.Run("Validation", func(t *testing.T) {
		f := setup(t)
		base := loan.CreateLoanParams{
			ClientID: f.client.ID, Principal: 100, InterestRate: 5,
			PeriodType: loan.PeriodWeekly, InstallmentCount: 4, StartDate: now,
		}
		cases := map[string]func(p *loan.CreateLoanParams){
			"zero principal":     func(p *loan.CreateLoanParams) { p.Principal = 0 },
			"zero installments":  func(p *loan.CreateLoanParams) { p.InstallmentCount = 0 },
			"unknown period":     func(p *loan.CreateLoanParams) { p.PeriodType = "daily" },
			"negative rate":      func(p *loan.CreateLoanParams) { p.InterestRate = -1 },
			"missing start date": func(p *loan.CreateLoanParams) { p.StartDate = time.Time{} },
			"NaN principal":      func(p *loan.CreateLoanParams) { p.Principal = math.NaN() },
			"infinite principal": func(p *loan.CreateLoanParams) { p.Principal = math.Inf(1) },
			"NaN rate":           func(p *loan.CreateLoanParams) { p.InterestRate = math.NaN() },
			"infinite rate":      func(p *loan.CreateLoanParams) { p.InterestRate = math.Inf(1) },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				p := base
				mutate(&p)
				_, err := f.svc.CreateLoan(ctx, p)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			})
		}
		t.Run("too many installments", func(t *testing.T) {
			p := base
			p.InstallmentCount = 2000000000
			_, err := f.svc.CreateLoan(ctx, p)
			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "installmentCount", vErr.Field)
		})
		loans, _ := f.svc.ListLoans(ctx, loan.LoanFilter{})
		assert.Empty(t, loans)
	})

	t.Run("Unknown Client", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.CreateLoan(ctx, loan.CreateLoanParams{
			ClientID: uuid.New(), Principal: 100, PeriodType: loan.PeriodMonthly, InstallmentCount: 1, StartDate: now,
		})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Inactive Client", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.clients.DeactivateClient(ctx, f.client.ID))

		_, err := f.svc.CreateLoan(ctx, loan.CreateLoanParams{
			ClientID: f.client.ID, Principal: 100, PeriodType: loan.PeriodMonthly, InstallmentCount: 1, StartDate: now,
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestLoanService_ScenarioA_ZeroRateToCompletion(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 1200, 0, 12, now)

	for i := 1; i <= 12; i++ {
		_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{
			LoanID: l.ID, Amount: 100, Type: loan.PaymentInstallment, InstallmentNumber: intPtr(i),
		})
		require.NoError(t, err, "installment %d", i)
	}

	got := f.stored(t, l.ID)
	assert.Equal(t, loan.StatusCompleted, got.Status)
	assert.Equal(t, 0.0, got.OutstandingBalance)
	assert.Equal(t, 12, got.PaidInstallments)
	require.NotEmpty(t, f.pub.statuses)
	assert.Equal(t, "completed", f.pub.statuses[len(f.pub.statuses)-1].NewStatus)
	assert.Len(t, f.pub.payments, 12)
}

func TestLoanService_ScenarioB_OverdueDetection(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now.AddDate(0, -1, -1))
	fresh := f.createLoan(t, 300, 0, 3, now)

	affected, err := f.svc.DetectOverdueInstallments(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{l.ID}, affected)
	got := f.stored(t, l.ID)
	assert.Equal(t, loan.StatusOverdue, got.Status)
	assert.Equal(t, loan.InstallmentOverdue, got.Installments[0].Status)
	assert.Equal(t, loan.InstallmentPending, got.Installments[1].Status)
	assert.Equal(t, loan.StatusActive, f.stored(t, fresh.ID).Status)
	require.Len(t, f.pub.statuses, 1)
	assert.Equal(t, "overdue", f.pub.statuses[0].NewStatus)

	again, err := f.svc.DetectOverdueInstallments(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, got, f.stored(t, l.ID))
}

func TestLoanService_ScenarioC_FullSettlement(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)

	_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 300, Type: loan.PaymentFullSettlement})

	require.NoError(t, err)
	got := f.stored(t, l.ID)
	for _, inst := range got.Installments {
		assert.Equal(t, loan.InstallmentPaid, inst.Status)
		assert.Equal(t, 100.0, *inst.PaidAmount)
	}
	assert.Equal(t, got.TotalInstallments, got.PaidInstallments)
	assert.Equal(t, loan.StatusCompleted, got.Status)
}

func TestLoanService_ScenarioD_UnknownInstallment(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)
	before := f.stored(t, l.ID)

	_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{
		LoanID: l.ID, Amount: 100, Type: loan.PaymentInstallment, InstallmentNumber: intPtr(9),
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, before, f.stored(t, l.ID))
	payments, _ := f.svc.ListPayments(ctx, &l.ID)
	assert.Empty(t, payments)
}

func TestLoanService_ScenarioE_Overpayment(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)

	_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 1000, Type: loan.PaymentPartial})

	require.NoError(t, err)
	got := f.stored(t, l.ID)
	assert.Equal(t, 0.0, got.OutstandingBalance)
	assert.Equal(t, loan.StatusCompleted, got.Status)
}

func TestLoanService_ApplyPayment_Rejections(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)

	cases := map[string]loan.ApplyPaymentParams{
		"zero amount":             {LoanID: l.ID, Amount: 0, Type: loan.PaymentPartial},
		"NaN amount":              {LoanID: l.ID, Amount: math.NaN(), Type: loan.PaymentPartial},
		"infinite amount":         {LoanID: l.ID, Amount: math.Inf(1), Type: loan.PaymentFullSettlement},
		"unknown type":            {LoanID: l.ID, Amount: 10, Type: "gift"},
		"missing installment":     {LoanID: l.ID, Amount: 10, Type: loan.PaymentInstallment},
		"nonexistent installment": {LoanID: l.ID, Amount: 10, Type: loan.PaymentInstallment, InstallmentNumber: intPtr(0)},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.ApplyPayment(ctx, params)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
	stored := f.stored(t, l.ID)
	assert.Equal(t, 300.0, stored.OutstandingBalance)
	assert.Equal(t, loan.StatusActive, stored.Status)

	t.Run("unknown loan", func(t *testing.T) {
		_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: uuid.New(), Amount: 10, Type: loan.PaymentPartial})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("installment already paid", func(t *testing.T) {
		params := loan.ApplyPaymentParams{LoanID: l.ID, Amount: 100, Type: loan.PaymentInstallment, InstallmentNumber: intPtr(1)}
		_, err := f.svc.ApplyPayment(ctx, params)
		require.NoError(t, err)

		_, err = f.svc.ApplyPayment(ctx, params)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Equal(t, 1, f.stored(t, l.ID).PaidInstallments)
	})

	t.Run("completed loan", func(t *testing.T) {
		_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 500, Type: loan.PaymentPartial})
		require.NoError(t, err)

		_, err = f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 5, Type: loan.PaymentPartial})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.ErrorIs(t, err, apperrors.ErrLoanFullyPaid)
	})

	payments, err := f.svc.ListPayments(ctx, &l.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2, "only accepted payments are recorded")
}

func TestLoanService_ApplyPayment_DefaultsDateToClock(t *testing.T) {
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)

	p, err := f.svc.ApplyPayment(context.Background(), loan.ApplyPaymentParams{LoanID: l.ID, Amount: 50, Type: loan.PaymentPartial, Notes: "cash"})

	require.NoError(t, err)
	assert.Equal(t, now, p.Date)
	assert.Equal(t, f.client.ID, p.ClientID)
	assert.Equal(t, "Ana Gomez", p.ClientName)
	assert.Equal(t, "cash", p.Notes)
}

func TestLoanService_ApplyPayment_RecordedButLoanUpdateFailed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)
	f.repo.updateErr = apperrors.ErrDatabase

	p, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 100, Type: loan.PaymentPartial})

	var recorded *apperrors.PaymentRecordedError
	require.ErrorAs(t, err, &recorded)
	assert.ErrorIs(t, err, apperrors.ErrPaymentRecorded)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	require.NotNil(t, p)
	assert.Equal(t, p.ID, recorded.PaymentID)
	assert.Equal(t, l.ID, recorded.LoanID)

	payments, _ := f.svc.ListPayments(ctx, &l.ID)
	require.Len(t, payments, 1, "payment must survive the failed loan update")
	assert.Equal(t, 300.0, f.stored(t, l.ID).OutstandingBalance)
	assert.Empty(t, f.pub.payments)
}

func TestLoanService_ApplyPayment_VersionConflict(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)
	f.repo.updateErr = apperrors.ErrConflict

	_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 100, Type: loan.PaymentPartial})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, err, apperrors.ErrPaymentRecorded)
}

func TestLoanService_ApplyPayment_PaymentSaveFails(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)
	f.repo.paymentErr = errors.New("disk full")

	_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 100, Type: loan.PaymentPartial})

	assert.ErrorContains(t, err, "disk full")
	var recorded *apperrors.PaymentRecordedError
	assert.False(t, errors.As(err, &recorded))
	assert.Equal(t, 300.0, f.stored(t, l.ID).OutstandingBalance)
}

func TestLoanService_ApplyPayment_ConcurrentPaymentsAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 1000, 0, 10, now)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 10, Type: loan.PaymentPartial})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	got := f.stored(t, l.ID)
	assert.Equal(t, 800.0, got.OutstandingBalance)
	assert.Equal(t, int64(20), got.Version)
	payments, _ := f.svc.ListPayments(ctx, &l.ID)
	assert.Len(t, payments, 20)
}

func TestLoanService_BalanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 1000, 24, 6, now)

	amounts := []struct {
		amount float64
		typ    loan.PaymentType
		inst   *int
	}{
		{50, loan.PaymentPartial, nil},
		{l.PeriodicPayment, loan.PaymentInstallment, intPtr(1)},
		{0.01, loan.PaymentPartial, nil},
		{l.PeriodicPayment, loan.PaymentInstallment, intPtr(2)},
		{5000, loan.PaymentPartial, nil},
	}
	prev := l.OutstandingBalance
	for _, a := range amounts {
		_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: a.amount, Type: a.typ, InstallmentNumber: a.inst})
		require.NoError(t, err)

		got := f.stored(t, l.ID)
		assert.LessOrEqual(t, got.OutstandingBalance, prev)
		assert.GreaterOrEqual(t, got.OutstandingBalance, 0.0)
		assert.LessOrEqual(t, got.PaidInstallments, got.TotalInstallments)
		prev = got.OutstandingBalance
	}
	assert.Equal(t, loan.StatusCompleted, f.stored(t, l.ID).Status)
}

func TestLoanService_PaymentRecomputesOverdueWithClock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now.AddDate(0, -2, -1))

	_, err := f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{
		LoanID: l.ID, Amount: 100, Type: loan.PaymentInstallment, InstallmentNumber: intPtr(1),
	})

	require.NoError(t, err)
	got := f.stored(t, l.ID)
	assert.Equal(t, loan.InstallmentPaid, got.Installments[0].Status)
	assert.Equal(t, loan.InstallmentOverdue, got.Installments[1].Status)
	assert.Equal(t, loan.StatusOverdue, got.Status)
}

func TestLoanService_GetLoanRefreshesOverdue(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now.AddDate(0, -1, -1))

	got, err := f.svc.GetLoan(ctx, l.ID)

	require.NoError(t, err)
	assert.Equal(t, loan.StatusOverdue, got.Status)
	assert.Equal(t, loan.StatusOverdue, f.stored(t, l.ID).Status)

	_, err = f.svc.GetLoan(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoanService_DetectOverdueContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	broken := f.createLoan(t, 300, 0, 3, now.AddDate(0, -1, -1))
	healthy := f.createLoan(t, 300, 0, 3, now.AddDate(0, -1, -2))
	f.repo.getErrFor[broken.ID] = apperrors.ErrDatabase

	affected, err := f.svc.DetectOverdueInstallments(ctx, now)

	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.Equal(t, []uuid.UUID{healthy.ID}, affected)
}

func TestLoanService_CancelLoan(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 300, 0, 3, now)

	cancelled, err := f.svc.CancelLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusCancelled, cancelled.Status)

	_, err = f.svc.CancelLoan(ctx, l.ID)
	assert.ErrorIs(t, err, apperrors.ErrLoanClosed)

	_, err = f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: l.ID, Amount: 10, Type: loan.PaymentPartial})
	assert.ErrorIs(t, err, apperrors.ErrLoanClosed)

	affected, err := f.svc.DetectOverdueInstallments(ctx, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, affected)
}

func TestLoanService_ListLoansFilter(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	older := f.createLoan(t, 100, 0, 1, now.AddDate(0, 0, -3))
	newer := f.createLoan(t, 100, 0, 1, now)
	_, err := f.svc.CancelLoan(ctx, older.ID)
	require.NoError(t, err)

	all, err := f.svc.ListLoans(ctx, loan.LoanFilter{ClientID: &f.client.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)

	active, err := f.svc.ListLoans(ctx, loan.LoanFilter{Statuses: []loan.LoanStatus{loan.StatusActive}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, newer.ID, active[0].ID)
}

func TestLoanService_DashboardMetrics(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.clients.CreateClient(ctx, client.Details{FirstName: "Luis", LastName: "Perez", Document: "V-2"})
	require.NoError(t, err)

	active := f.createLoan(t, 1000, 0, 10, now)
	overdue := f.createLoan(t, 500, 0, 5, now.AddDate(0, -1, -1))
	completed := f.createLoan(t, 200, 0, 2, now)
	_, err = f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: active.ID, Amount: 100, Type: loan.PaymentPartial})
	require.NoError(t, err)
	_, err = f.svc.ApplyPayment(ctx, loan.ApplyPaymentParams{LoanID: completed.ID, Amount: 200, Type: loan.PaymentFullSettlement})
	require.NoError(t, err)
	_, err = f.svc.DetectOverdueInstallments(ctx, now)
	require.NoError(t, err)
	require.Equal(t, loan.StatusOverdue, f.stored(t, overdue.ID).Status)

	m, err := f.svc.DashboardMetrics(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1700.0, m.TotalLent)
	assert.Equal(t, 900.0, m.TotalOutstanding)
	assert.Equal(t, 300.0, m.TotalRecovered)
	assert.Equal(t, 1, m.ActiveLoans)
	assert.Equal(t, 1, m.OverdueLoans)
	assert.Equal(t, 3, m.TotalLoans)
	assert.Equal(t, 2, m.ActiveClients)
	assert.Equal(t, 2, m.TotalClients)
}

func TestLoanService_ClientDeleteRefusedWithActiveLoan(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l := f.createLoan(t, 100, 0, 1, now)

	err := f.clients.DeleteClient(ctx, f.client.ID)
	assert.ErrorIs(t, err, client.ErrClientHasActiveLoans)

	_, err = f.svc.CancelLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.NoError(t, f.clients.DeleteClient(ctx, f.client.ID))
}
