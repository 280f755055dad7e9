package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	upsertUserSQL = `
        INSERT INTO users (id, username, password_hash, name, email, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE
        SET password_hash = EXCLUDED.password_hash, name = EXCLUDED.name, email = EXCLUDED.email`

	upsertClientSQL = `
        INSERT INTO clients (id, first_name, last_name, document, phone, email, address, active, registered_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE
        SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, phone = EXCLUDED.phone,
            email = EXCLUDED.email, address = EXCLUDED.address, active = EXCLUDED.active,
            updated_at = EXCLUDED.updated_at`

	upsertLoanSQL = `
        INSERT INTO loans (id, client_id, client_name, principal, interest_rate, period_type, installment_count,
            total_installments, start_date, due_date, status, outstanding_balance, periodic_payment,
            paid_installments, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, $15, $16)
        ON CONFLICT (id) DO UPDATE
        SET outstanding_balance = EXCLUDED.outstanding_balance, paid_installments = EXCLUDED.paid_installments,
            status = EXCLUDED.status, updated_at = EXCLUDED.updated_at, version = loans.version + 1`

	deleteInstallmentsSQL = `DELETE FROM installments WHERE loan_id = $1`

	insertInstallmentSQL = `
        INSERT INTO installments (loan_id, number, amount, due_date, status, paid_date, paid_amount)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	upsertPaymentSQL = `
        INSERT INTO payments (id, loan_id, client_id, client_name, amount, paid_at, type, installment_number, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET notes = EXCLUDED.notes`
)

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Summary struct {
	Users        int
	Clients      int
	Loans        int
	Installments int
	Payments     int
}

type Importer struct {
	db     TxBeginner
	now    func() time.Time
	logger *slog.Logger
}

func New(db TxBeginner, logger *slog.Logger) *Importer {
	return &Importer{db: db, now: time.Now, logger: logger.With("component", "Importer")}
}

// Import reads a legacy export and upserts it in a single transaction. Nothing is
// written when any record fails to convert or store.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Summary, error) {
	export, err := decodeExport(r)
	if err != nil {
		return Summary{}, err
	}
	ds, err := convert(export, im.now())
	if err != nil {
		return Summary{}, fmt.Errorf("failed to convert legacy export: %w", err)
	}
	return im.Write(ctx, ds)
}

func (im *Importer) Write(ctx context.Context, ds *Dataset) (Summary, error) {
	batch, summary := buildBatch(ds)

	tx, err := im.db.Begin(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			im.logger.ErrorContext(ctx, "Failed to rollback import", slog.Any("error", err))
		}
	}()

	results := tx.SendBatch(ctx, batch)
	for i := range batch.Len() {
		if _, err := results.Exec(); err != nil {
			results.Close()
			im.logger.ErrorContext(ctx, "Import statement failed", slog.Int("statement", i), slog.Any("error", err))
			return Summary{}, fmt.Errorf("import statement %d failed: %w", i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		return Summary{}, fmt.Errorf("closing batch results failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Summary{}, fmt.Errorf("failed to commit import: %w", err)
	}

	im.logger.InfoContext(ctx, "Legacy import complete",
		slog.Int("users", summary.Users),
		slog.Int("clients", summary.Clients),
		slog.Int("loans", summary.Loans),
		slog.Int("installments", summary.Installments),
		slog.Int("payments", summary.Payments),
	)
	return summary, nil
}

// buildBatch orders statements so foreign keys resolve: users, clients, loans with
// their installments, then payments.
func buildBatch(ds *Dataset) (*pgx.Batch, Summary) {
	batch := &pgx.Batch{}
	var s Summary

	for _, u := range ds.Users {
		batch.Queue(upsertUserSQL, u.ID, u.Username, u.PasswordHash, u.Name, u.Email, u.CreatedAt)
		s.Users++
	}
	for _, c := range ds.Clients {
		batch.Queue(upsertClientSQL, c.ID, c.FirstName, c.LastName, c.Document, c.Phone, c.Email, c.Address,
			c.Active, c.RegisteredAt, c.UpdatedAt)
		s.Clients++
	}
	for _, l := range ds.Loans {
		batch.Queue(upsertLoanSQL, l.ID, l.ClientID, l.ClientName, l.Principal, l.InterestRate, string(l.PeriodType),
			l.InstallmentCount, l.TotalInstallments, l.StartDate, l.DueDate, string(l.Status),
			l.OutstandingBalance, l.PeriodicPayment, l.PaidInstallments, l.CreatedAt, l.UpdatedAt)
		s.Loans++

		if len(l.Installments) == 0 {
			continue
		}
		batch.Queue(deleteInstallmentsSQL, l.ID)
		for _, inst := range l.Installments {
			batch.Queue(insertInstallmentSQL, l.ID, inst.Number, inst.Amount, inst.DueDate, string(inst.Status),
				inst.PaidDate, inst.PaidAmount)
			s.Installments++
		}
	}
	for _, p := range ds.Payments {
		batch.Queue(upsertPaymentSQL, p.ID, p.LoanID, p.ClientID, p.ClientName, p.Amount, p.Date, string(p.Type),
			p.InstallmentNumber, p.Notes, p.CreatedAt)
		s.Payments++
	}
	return batch, s
}
