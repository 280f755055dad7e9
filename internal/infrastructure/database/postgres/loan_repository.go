package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const loanColumns = `id, client_id, client_name, principal, interest_rate, period_type, installment_count,
        total_installments, start_date, due_date, status, outstanding_balance, periodic_payment,
        paid_installments, version, created_at, updated_at`

const paymentColumns = `id, loan_id, client_id, client_name, amount, paid_at, type, installment_number, notes, created_at`

var installmentColumns = []string{"loan_id", "number", "amount", "due_date", "status", "paid_date", "paid_amount"}

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.ClientID, &l.ClientName, &l.Principal, &l.InterestRate, &l.PeriodType,
		&l.InstallmentCount, &l.TotalInstallments, &l.StartDate, &l.DueDate, &l.Status,
		&l.OutstandingBalance, &l.PeriodicPayment, &l.PaidInstallments, &l.Version,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) SaveNewLoan(ctx context.Context, l *loan.Loan) (err error) {
	defer func(start time.Time) { observeQuery("SaveNewLoan", start, err) }(time.Now())
	logger := r.logger.With(slog.String("loanID", l.ID.String()))

	tx, err := beginTx(ctx, r.db, logger)
	if err != nil {
		return err
	}
	defer rollbackTx(ctx, tx, logger)

	loanSQL := `
        INSERT INTO loans (` + loanColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = tx.Exec(ctx, loanSQL,
		l.ID, l.ClientID, l.ClientName, l.Principal, l.InterestRate, string(l.PeriodType),
		l.InstallmentCount, l.TotalInstallments, l.StartDate, l.DueDate, string(l.Status),
		l.OutstandingBalance, l.PeriodicPayment, l.PaidInstallments, l.Version,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return translateDBError(err, logger)
	}

	rows := make([][]any, 0, len(l.Installments))
	for _, inst := range l.Installments {
		rows = append(rows, []any{l.ID, inst.Number, inst.Amount, inst.DueDate, string(inst.Status), inst.PaidDate, inst.PaidAmount})
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"installments"}, installmentColumns, pgx.CopyFromRows(rows))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to copy installments", slog.Any("error", err))
		return fmt.Errorf("%w: failed inserting installments: %w", apperrors.ErrDatabase, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("%w: inserted %d of %d installments", apperrors.ErrDatabase, n, len(rows))
	}

	if err = commitTx(ctx, tx, logger); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Loan created in DB", slog.Int("installments", len(rows)))
	return nil
}

func (r *LoanRepository) GetLoan(ctx context.Context, loanID uuid.UUID) (l *loan.Loan, err error) {
	defer func(start time.Time) { observeQuery("GetLoan", start, err) }(time.Now())

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	l, err = scanLoan(r.db.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	byLoan, err := r.installmentsFor(ctx, []uuid.UUID{loanID})
	if err != nil {
		return nil, err
	}
	l.Installments = byLoan[loanID]
	return l, nil
}

func (r *LoanRepository) ListLoans(ctx context.Context, filter loan.LoanFilter) (loans []*loan.Loan, err error) {
	defer func(start time.Time) { observeQuery("ListLoans", start, err) }(time.Now())

	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE ($1::uuid IS NULL OR client_id = $1)
          AND (cardinality($2::text[]) = 0 OR status = ANY($2))
        ORDER BY start_date DESC`

	rows, err := r.db.Query(ctx, query, filter.ClientID, statuses)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans = make([]*loan.Loan, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", slog.Any("error", err))
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
		ids = append(ids, l.ID)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if len(loans) == 0 {
		return loans, nil
	}

	byLoan, err := r.installmentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range loans {
		l.Installments = byLoan[l.ID]
	}
	return loans, nil
}

func (r *LoanRepository) installmentsFor(ctx context.Context, loanIDs []uuid.UUID) (map[uuid.UUID][]loan.Installment, error) {
	query := `
        SELECT loan_id, number, amount, due_date, status, paid_date, paid_amount
        FROM installments
        WHERE loan_id = ANY($1)
        ORDER BY loan_id, number ASC`

	rows, err := r.db.Query(ctx, query, loanIDs)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query installments", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]loan.Installment, len(loanIDs))
	for rows.Next() {
		var (
			loanID uuid.UUID
			inst   loan.Installment
		)
		if err := rows.Scan(&loanID, &inst.Number, &inst.Amount, &inst.DueDate, &inst.Status, &inst.PaidDate, &inst.PaidAmount); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", slog.Any("error", err))
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		out[loanID] = append(out[loanID], inst)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating installment rows", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return out, nil
}

func (r *LoanRepository) UpdateLoan(ctx context.Context, l *loan.Loan) (err error) {
	defer func(start time.Time) { observeQuery("UpdateLoan", start, err) }(time.Now())
	logger := r.logger.With(slog.String("loanID", l.ID.String()), slog.Int64("version", l.Version))

	tx, err := beginTx(ctx, r.db, logger)
	if err != nil {
		return err
	}
	defer rollbackTx(ctx, tx, logger)

	loanSQL := `
        UPDATE loans
        SET status = $1, outstanding_balance = $2, paid_installments = $3, updated_at = $4, version = version + 1
        WHERE id = $5 AND version = $6`

	cmdTag, err := tx.Exec(ctx, loanSQL, string(l.Status), l.OutstandingBalance, l.PaidInstallments, l.UpdatedAt, l.ID, l.Version)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to update loan", slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		var stored int64
		if err := tx.QueryRow(ctx, `SELECT version FROM loans WHERE id = $1`, l.ID).Scan(&stored); err != nil {
			return translateDBError(err, logger)
		}
		logger.WarnContext(ctx, "Loan version moved on, rejecting stale update", slog.Int64("storedVersion", stored))
		return fmt.Errorf("loan %s at version %d, update based on %d: %w", l.ID, stored, l.Version, apperrors.ErrConflict)
	}

	numbers := make([]int, 0, len(l.Installments))
	statuses := make([]string, 0, len(l.Installments))
	paidDates := make([]*time.Time, 0, len(l.Installments))
	paidAmounts := make([]*float64, 0, len(l.Installments))
	for _, inst := range l.Installments {
		numbers = append(numbers, inst.Number)
		statuses = append(statuses, string(inst.Status))
		paidDates = append(paidDates, inst.PaidDate)
		paidAmounts = append(paidAmounts, inst.PaidAmount)
	}

	installmentSQL := `
        UPDATE installments AS i
        SET status = u.status, paid_date = u.paid_date, paid_amount = u.paid_amount
        FROM unnest($2::int[], $3::text[], $4::timestamptz[], $5::float8[]) AS u(number, status, paid_date, paid_amount)
        WHERE i.loan_id = $1 AND i.number = u.number`

	if _, err = tx.Exec(ctx, installmentSQL, l.ID, numbers, statuses, paidDates, paidAmounts); err != nil {
		logger.ErrorContext(ctx, "Failed to update installments", slog.Any("error", err))
		return fmt.Errorf("%w: failed updating installments: %w", apperrors.ErrDatabase, err)
	}

	if err = commitTx(ctx, tx, logger); err != nil {
		return err
	}
	l.Version++
	return nil
}

func (r *LoanRepository) SavePayment(ctx context.Context, p *loan.Payment) (err error) {
	defer func(start time.Time) { observeQuery("SavePayment", start, err) }(time.Now())

	query := `
        INSERT INTO payments (` + paymentColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		p.ID, p.LoanID, p.ClientID, p.ClientName, p.Amount, p.Date, string(p.Type), p.InstallmentNumber, p.Notes, p.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert payment", slog.String("paymentID", p.ID.String()), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) ListPayments(ctx context.Context, loanID *uuid.UUID) ([]*loan.Payment, error) {
	query := `
        SELECT ` + paymentColumns + `
        FROM payments
        WHERE ($1::uuid IS NULL OR loan_id = $1)
        ORDER BY paid_at DESC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]*loan.Payment, 0)
	for rows.Next() {
		var p loan.Payment
		err := rows.Scan(&p.ID, &p.LoanID, &p.ClientID, &p.ClientName, &p.Amount, &p.Date, &p.Type, &p.InstallmentNumber, &p.Notes, &p.CreatedAt)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", slog.Any("error", err))
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, &p)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating payment rows", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return payments, nil
}

func (r *LoanRepository) HasActiveLoans(ctx context.Context, clientID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM loans WHERE client_id = $1 AND status IN ('active', 'overdue'))`

	var exists bool
	if err := r.db.QueryRow(ctx, query, clientID).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check active loans", slog.String("clientID", clientID.String()), slog.Any("error", err))
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return exists, nil
}
