package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/user"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

const pgxmockExpectationsNotMetMsg = "pgxmock expectations were not met"

var loanColumnNames = []string{
	"id", "client_id", "client_name", "principal", "interest_rate", "period_type", "installment_count",
	"total_installments", "start_date", "due_date", "status", "outstanding_balance", "periodic_payment",
	"paid_installments", "version", "created_at", "updated_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to open a stub database connection")
	t.Cleanup(mockPool.Close)
	return mockPool
}

func sampleLoan() *loan.Loan {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return &loan.Loan{
		ID:                 uuid.MustParse("7a1c0f3e-5a4b-4a57-9d5e-1c2b3a4d5e6f"),
		ClientID:           uuid.MustParse("0b6d9e43-2f9c-4f4b-8c8e-9a3c1d2e4f50"),
		ClientName:         "Ana Diaz",
		Principal:          1000,
		InterestRate:       12,
		PeriodType:         loan.PeriodMonthly,
		InstallmentCount:   2,
		TotalInstallments:  2,
		StartDate:          start,
		DueDate:            start.AddDate(0, 2, 0),
		Status:             loan.StatusActive,
		OutstandingBalance: 1000,
		PeriodicPayment:    507.51,
		Installments: []loan.Installment{
			{Number: 1, Amount: 507.51, DueDate: start.AddDate(0, 1, 0), Status: loan.InstallmentPending},
			{Number: 2, Amount: 507.51, DueDate: start.AddDate(0, 2, 0), Status: loan.InstallmentPending},
		},
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func loanRow(l *loan.Loan) []any {
	return []any{
		l.ID, l.ClientID, l.ClientName, l.Principal, l.InterestRate, l.PeriodType,
		l.InstallmentCount, l.TotalInstallments, l.StartDate, l.DueDate, l.Status,
		l.OutstandingBalance, l.PeriodicPayment, l.PaidInstallments, l.Version, l.CreatedAt, l.UpdatedAt,
	}
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestLoanRepository_SaveNewLoan(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	l := sampleLoan()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO loans")).
		WithArgs(
			l.ID, l.ClientID, l.ClientName, l.Principal, l.InterestRate, "monthly",
			l.InstallmentCount, l.TotalInstallments, l.StartDate, l.DueDate, "active",
			l.OutstandingBalance, l.PeriodicPayment, l.PaidInstallments, l.Version, l.CreatedAt, l.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCopyFrom(pgx.Identifier{"installments"}, installmentColumns).WillReturnResult(2)
	mockPool.ExpectCommit()

	err := repo.SaveNewLoan(context.Background(), l)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_SaveNewLoan_ClientMissing(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO loans")).
		WithArgs(anyArgs(17)...).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "loans_client_id_fkey"})
	mockPool.ExpectRollback()

	err := repo.SaveNewLoan(context.Background(), sampleLoan())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetLoan(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	want := sampleLoan()
	paidAt := want.StartDate.AddDate(0, 1, 0)
	paidAmount := 507.51
	want.Installments[0].Status = loan.InstallmentPaid
	want.Installments[0].PaidDate = &paidAt
	want.Installments[0].PaidAmount = &paidAmount

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE id = $1")).
		WithArgs(want.ID).
		WillReturnRows(pgxmock.NewRows(loanColumnNames).AddRow(loanRow(want)...))
	mockPool.ExpectQuery(regexp.QuoteMeta("FROM installments")).
		WithArgs([]uuid.UUID{want.ID}).
		WillReturnRows(pgxmock.NewRows(installmentColumns).
			AddRow(want.ID, 1, 507.51, want.Installments[0].DueDate, loan.InstallmentPaid, &paidAt, &paidAmount).
			AddRow(want.ID, 2, 507.51, want.Installments[1].DueDate, loan.InstallmentPending, nil, nil))

	got, err := repo.GetLoan(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetLoan_NotFound(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	id := uuid.New()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE id = $1")).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetLoan(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_ListLoans_Empty(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)

	mockPool.ExpectQuery(regexp.QuoteMeta("ORDER BY start_date DESC")).
		WithArgs(pgxmock.AnyArg(), []string{"overdue"}).
		WillReturnRows(pgxmock.NewRows(loanColumnNames))

	loans, err := repo.ListLoans(context.Background(), loan.LoanFilter{Statuses: []loan.LoanStatus{loan.StatusOverdue}})
	require.NoError(t, err)
	assert.Empty(t, loans)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_UpdateLoan(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	l := sampleLoan()
	l.Version = 3
	l.OutstandingBalance = 492.49
	l.PaidInstallments = 1

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans")).
		WithArgs("active", 492.49, 1, l.UpdatedAt, l.ID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE installments")).
		WithArgs(l.ID, []int{1, 2}, []string{"pending", "pending"}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mockPool.ExpectCommit()

	require.NoError(t, repo.UpdateLoan(context.Background(), l))
	assert.Equal(t, int64(4), l.Version)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_UpdateLoan_StaleVersion(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	l := sampleLoan()
	l.Version = 1

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), l.ID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT version FROM loans")).
		WithArgs(l.ID).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(2)))
	mockPool.ExpectRollback()

	err := repo.UpdateLoan(context.Background(), l)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, int64(1), l.Version)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_HasActiveLoans(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	clientID := uuid.New()

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(clientID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := repo.HasActiveLoans(context.Background(), clientID)
	require.NoError(t, err)
	assert.True(t, has)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestClientRepository_CreateDuplicateDocument(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewClientRepository(mockPool, logger)
	c := client.NewClient(client.Details{FirstName: "Ana", LastName: "Diaz", Document: "123"})

	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO clients")).
		WithArgs(c.ID, "Ana", "Diaz", "123", "", "", "", true, c.RegisteredAt, c.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "clients_document_key"})

	err := repo.Create(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestClientRepository_DeleteMissing(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewClientRepository(mockPool, logger)
	id := uuid.New()

	mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM clients")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestClientRepository_FindAllActive(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewClientRepository(mockPool, logger)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	mockPool.ExpectQuery(regexp.QuoteMeta("WHERE active = $1 ORDER BY registered_at DESC")).
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "document", "phone", "email", "address", "active", "registered_at", "updated_at"}).
			AddRow(id, "Ana", "Diaz", "123", "555", "", "", true, now, now))

	clients, err := repo.FindAll(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, id, clients[0].ID)
	assert.Equal(t, "555", clients[0].Phone)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUserRepository_FindByUsername(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewUserRepository(mockPool, logger)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	mockPool.ExpectQuery(regexp.QuoteMeta("LOWER(username) = LOWER($1)")).
		WithArgs("admin").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "name", "email", "created_at"}).
			AddRow(id, "Admin", "hash", "Administrator", "", now))
	mockPool.ExpectQuery(regexp.QuoteMeta("LOWER(username) = LOWER($1)")).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	u, err := repo.FindByUsername(context.Background(), " ADMIN ")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	_, err = repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestTranslateDBError(t *testing.T) {
	assert.NoError(t, translateDBError(nil, logger))
	assert.ErrorIs(t, translateDBError(pgx.ErrNoRows, logger), apperrors.ErrNotFound)
	assert.ErrorIs(t, translateDBError(&pgconn.PgError{Code: pgerrcode.UniqueViolation}, logger), apperrors.ErrAlreadyExists)

	err := translateDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation}, logger)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DB_ERROR", appErr.Code)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}
