package loan

import (
	"fmt"
	"time"

	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type PeriodType string

const (
	PeriodWeekly   PeriodType = "weekly"
	PeriodBiweekly PeriodType = "biweekly"
	PeriodMonthly  PeriodType = "monthly"
)

type LoanStatus string

const (
	StatusActive    LoanStatus = "active"
	StatusCompleted LoanStatus = "completed"
	StatusOverdue   LoanStatus = "overdue"
	StatusCancelled LoanStatus = "cancelled"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

func ParsePeriodType(s string) (PeriodType, error) {
	switch p := PeriodType(s); p {
	case PeriodWeekly, PeriodBiweekly, PeriodMonthly:
		return p, nil
	}
	return "", apperrors.NewValidationError("periodType", fmt.Sprintf("unknown period type %q", s))
}

func ParseLoanStatus(s string) (LoanStatus, error) {
	switch st := LoanStatus(s); st {
	case StatusActive, StatusCompleted, StatusOverdue, StatusCancelled:
		return st, nil
	}
	return "", apperrors.NewValidationError("status", fmt.Sprintf("unknown loan status %q", s))
}

type Loan struct {
	ID                 uuid.UUID
	ClientID           uuid.UUID
	ClientName         string
	Principal          float64
	InterestRate       float64
	PeriodType         PeriodType
	InstallmentCount   int
	TotalInstallments  int
	StartDate          time.Time
	DueDate            time.Time
	Status             LoanStatus
	OutstandingBalance float64
	PeriodicPayment    float64
	PaidInstallments   int
	Installments       []Installment
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Installment struct {
	Number     int
	Amount     float64
	DueDate    time.Time
	Status     InstallmentStatus
	PaidDate   *time.Time
	PaidAmount *float64
}

func (l *Loan) IsTerminal() bool {
	return l.Status == StatusCompleted || l.Status == StatusCancelled
}

// Installment returns the installment with the given 1-based number, or nil.
func (l *Loan) Installment(number int) *Installment {
	for i := range l.Installments {
		if l.Installments[i].Number == number {
			return &l.Installments[i]
		}
	}
	return nil
}

// MarkOverdue flips pending installments due strictly before now (date only) to
// overdue and moves an active loan to overdue when any installment flipped. It
// reports whether anything changed. Terminal loans are left alone.
func (l *Loan) MarkOverdue(now time.Time) bool {
	if l.Status != StatusActive && l.Status != StatusOverdue {
		return false
	}

	today := dateOnly(now)
	flipped := false
	for i := range l.Installments {
		inst := &l.Installments[i]
		if inst.Status == InstallmentPending && dateOnly(inst.DueDate).Before(today) {
			inst.Status = InstallmentOverdue
			flipped = true
		}
	}
	if !flipped {
		return false
	}

	if l.Status == StatusActive {
		l.Status = StatusOverdue
	}
	l.UpdatedAt = now
	return true
}

// CheckPayable validates a payment against the loan without mutating it.
func (l *Loan) CheckPayable(paymentType PaymentType, installmentNumber *int) error {
	switch l.Status {
	case StatusCompleted:
		return apperrors.NewValidationErrorWithCause("loanId", "loan is already completed", apperrors.ErrLoanFullyPaid)
	case StatusCancelled:
		return apperrors.NewValidationErrorWithCause("loanId", "loan is cancelled", apperrors.ErrLoanClosed)
	}

	if paymentType != PaymentInstallment {
		return nil
	}
	if installmentNumber == nil {
		return apperrors.NewValidationError("installmentNumber", "installment payments require an installment number")
	}
	inst := l.Installment(*installmentNumber)
	if inst == nil {
		return apperrors.NewValidationError("installmentNumber", fmt.Sprintf("installment %d does not exist", *installmentNumber))
	}
	if inst.Status == InstallmentPaid {
		return apperrors.NewValidationError("installmentNumber", fmt.Sprintf("installment %d is already paid", *installmentNumber))
	}
	return nil
}

// ApplyPayment applies a payment that already passed CheckPayable. The balance never
// goes below zero; a loan whose balance reaches zero is completed, otherwise its
// overdue state is recomputed against now.
func (l *Loan) ApplyPayment(p *Payment, now time.Time) {
	l.OutstandingBalance -= p.Amount
	if l.OutstandingBalance < 0 {
		l.OutstandingBalance = 0
	}

	switch p.Type {
	case PaymentInstallment:
		if inst := l.Installment(*p.InstallmentNumber); inst != nil {
			paidDate := p.Date
			paidAmount := p.Amount
			inst.Status = InstallmentPaid
			inst.PaidDate = &paidDate
			inst.PaidAmount = &paidAmount
			if l.PaidInstallments < l.TotalInstallments {
				l.PaidInstallments++
			}
		}
	case PaymentFullSettlement:
		for i := range l.Installments {
			inst := &l.Installments[i]
			if inst.Status == InstallmentPaid {
				continue
			}
			paidDate := p.Date
			paidAmount := inst.Amount
			inst.Status = InstallmentPaid
			inst.PaidDate = &paidDate
			inst.PaidAmount = &paidAmount
		}
		l.PaidInstallments = l.TotalInstallments
	}

	l.UpdatedAt = now
	if l.OutstandingBalance <= 0 {
		l.OutstandingBalance = 0
		l.Status = StatusCompleted
		return
	}
	l.MarkOverdue(now)
}

func (l *Loan) Cancel(now time.Time) error {
	if l.IsTerminal() {
		return apperrors.NewValidationErrorWithCause("loanId", fmt.Sprintf("loan is already %s", l.Status), apperrors.ErrLoanClosed)
	}
	l.Status = StatusCancelled
	l.UpdatedAt = now
	return nil
}

// Clone returns a deep copy, including the installment schedule.
func (l *Loan) Clone() *Loan {
	c := *l
	c.Installments = make([]Installment, len(l.Installments))
	for i, inst := range l.Installments {
		if inst.PaidDate != nil {
			d := *inst.PaidDate
			inst.PaidDate = &d
		}
		if inst.PaidAmount != nil {
			a := *inst.PaidAmount
			inst.PaidAmount = &a
		}
		c.Installments[i] = inst
	}
	return &c
}

// dateOnly compares calendar days in UTC, the zone due dates are stored in.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
