package dto

import (
	"fmt"
	"time"

	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates (start dates, due dates).
const DateLayout = time.DateOnly

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, fmt.Sprintf("invalid %s format (use YYYY-MM-DD)", field))
	}
	return t, nil
}

type CreateLoanRequest struct {
	ClientID         string          `json:"clientId"`
	Principal        decimal.Decimal `json:"principal" swaggertype:"string" example:"5000.00"`
	InterestRate     decimal.Decimal `json:"interestRate" swaggertype:"string" example:"12"`
	PeriodType       string          `json:"periodType" example:"monthly"`
	InstallmentCount int             `json:"installmentCount" example:"12"`
	StartDate        string          `json:"startDate" example:"2024-01-01"`
}

// Params validates the request shape and converts it into service parameters.
// Business rules (positive principal, known period) stay in the service.
func (r *CreateLoanRequest) Params() (loan.CreateLoanParams, error) {
	clientID, err := uuid.Parse(r.ClientID)
	if err != nil {
		return loan.CreateLoanParams{}, apperrors.NewValidationError("clientId", "clientId must be a valid UUID")
	}
	if r.StartDate == "" {
		return loan.CreateLoanParams{}, apperrors.NewValidationError("startDate", "startDate is required")
	}
	start, err := ParseDate("startDate", r.StartDate)
	if err != nil {
		return loan.CreateLoanParams{}, err
	}
	return loan.CreateLoanParams{
		ClientID:         clientID,
		Principal:        r.Principal.InexactFloat64(),
		InterestRate:     r.InterestRate.InexactFloat64(),
		PeriodType:       loan.PeriodType(r.PeriodType),
		InstallmentCount: r.InstallmentCount,
		StartDate:        start,
	}, nil
}

type ApplyPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount" swaggertype:"string" example:"444.24"`
	Date              string          `json:"date,omitempty" example:"2024-02-01"`
	Type              string          `json:"type" example:"installment"`
	InstallmentNumber *int            `json:"installmentNumber,omitempty" example:"1"`
	Notes             string          `json:"notes,omitempty"`
}

func (r *ApplyPaymentRequest) Params(loanID uuid.UUID) (loan.ApplyPaymentParams, error) {
	p := loan.ApplyPaymentParams{
		LoanID:            loanID,
		Amount:            r.Amount.InexactFloat64(),
		Type:              loan.PaymentType(r.Type),
		InstallmentNumber: r.InstallmentNumber,
		Notes:             r.Notes,
	}
	if r.Date != "" {
		d, err := ParseDate("date", r.Date)
		if err != nil {
			return loan.ApplyPaymentParams{}, err
		}
		p.Date = d
	}
	return p, nil
}

type InstallmentResponse struct {
	Number     int        `json:"number"`
	Amount     string     `json:"amount"`
	DueDate    string     `json:"dueDate"`
	Status     string     `json:"status"`
	PaidDate   *time.Time `json:"paidDate,omitempty"`
	PaidAmount *string    `json:"paidAmount,omitempty"`
}

type LoanResponse struct {
	ID                 string                `json:"id"`
	ClientID           string                `json:"clientId"`
	ClientName         string                `json:"clientName"`
	Principal          string                `json:"principal"`
	InterestRate       string                `json:"interestRate"`
	PeriodType         string                `json:"periodType"`
	InstallmentCount   int                   `json:"installmentCount"`
	TotalInstallments  int                   `json:"totalInstallments"`
	PaidInstallments   int                   `json:"paidInstallments"`
	PeriodicPayment    string                `json:"periodicPayment"`
	OutstandingBalance string                `json:"outstandingBalance"`
	StartDate          string                `json:"startDate"`
	DueDate            string                `json:"dueDate"`
	Status             string                `json:"status"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
	Installments       []InstallmentResponse `json:"installments,omitempty"`
}

func NewLoanResponse(l *loan.Loan, includeInstallments bool) LoanResponse {
	resp := LoanResponse{
		ID:                 l.ID.String(),
		ClientID:           l.ClientID.String(),
		ClientName:         l.ClientName,
		Principal:          formatMoney(l.Principal),
		InterestRate:       decimal.NewFromFloat(l.InterestRate).String(),
		PeriodType:         string(l.PeriodType),
		InstallmentCount:   l.InstallmentCount,
		TotalInstallments:  l.TotalInstallments,
		PaidInstallments:   l.PaidInstallments,
		PeriodicPayment:    formatMoney(l.PeriodicPayment),
		OutstandingBalance: formatMoney(l.OutstandingBalance),
		StartDate:          l.StartDate.Format(DateLayout),
		DueDate:            l.DueDate.Format(DateLayout),
		Status:             string(l.Status),
		Version:            l.Version,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
	if includeInstallments {
		resp.Installments = NewInstallmentResponses(l.Installments)
	}
	return resp
}

func NewLoanResponses(loans []*loan.Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, NewLoanResponse(l, false))
	}
	return out
}

func NewInstallmentResponses(installments []loan.Installment) []InstallmentResponse {
	out := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		var paid *string
		if inst.PaidAmount != nil {
			s := formatMoney(*inst.PaidAmount)
			paid = &s
		}
		out[i] = InstallmentResponse{
			Number:     inst.Number,
			Amount:     formatMoney(inst.Amount),
			DueDate:    inst.DueDate.Format(DateLayout),
			Status:     string(inst.Status),
			PaidDate:   inst.PaidDate,
			PaidAmount: paid,
		}
	}
	return out
}

type PaymentResponse struct {
	ID                string    `json:"id"`
	LoanID            string    `json:"loanId"`
	ClientID          string    `json:"clientId"`
	ClientName        string    `json:"clientName"`
	Amount            string    `json:"amount"`
	Date              time.Time `json:"date"`
	Type              string    `json:"type"`
	InstallmentNumber *int      `json:"installmentNumber,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

func NewPaymentResponse(p *loan.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID.String(),
		LoanID:            p.LoanID.String(),
		ClientID:          p.ClientID.String(),
		ClientName:        p.ClientName,
		Amount:            formatMoney(p.Amount),
		Date:              p.Date,
		Type:              string(p.Type),
		InstallmentNumber: p.InstallmentNumber,
		Notes:             p.Notes,
		CreatedAt:         p.CreatedAt,
	}
}

func NewPaymentResponses(payments []*loan.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, NewPaymentResponse(p))
	}
	return out
}

type ApplyPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Loan    LoanResponse    `json:"loan"`
}

type OverdueCheckResponse struct {
	CheckedAt time.Time `json:"checkedAt"`
	LoanIDs   []string  `json:"loanIds"`
}

type QuoteRequest struct {
	Principal        decimal.Decimal `json:"principal" swaggertype:"string" example:"5000.00"`
	InterestRate     decimal.Decimal `json:"interestRate" swaggertype:"string" example:"12"`
	PeriodType       string          `json:"periodType" example:"monthly"`
	InstallmentCount int             `json:"installmentCount" example:"12"`
	StartDate        string          `json:"startDate,omitempty" example:"2024-01-01"`
}

type QuoteResponse struct {
	PeriodicPayment string                `json:"periodicPayment"`
	TotalPayable    string                `json:"totalPayable"`
	TotalInterest   string                `json:"totalInterest"`
	Installments    []InstallmentResponse `json:"installments,omitempty"`
}

type DashboardResponse struct {
	TotalLent        string `json:"totalLent"`
	TotalOutstanding string `json:"totalOutstanding"`
	TotalRecovered   string `json:"totalRecovered"`
	ActiveLoans      int    `json:"activeLoans"`
	OverdueLoans     int    `json:"overdueLoans"`
	TotalLoans       int    `json:"totalLoans"`
	ActiveClients    int    `json:"activeClients"`
	TotalClients     int    `json:"totalClients"`
}

func NewDashboardResponse(m *loan.DashboardMetrics) DashboardResponse {
	return DashboardResponse{
		TotalLent:        formatMoney(m.TotalLent),
		TotalOutstanding: formatMoney(m.TotalOutstanding),
		TotalRecovered:   formatMoney(m.TotalRecovered),
		ActiveLoans:      m.ActiveLoans,
		OverdueLoans:     m.OverdueLoans,
		TotalLoans:       m.TotalLoans,
		ActiveClients:    m.ActiveClients,
		TotalClients:     m.TotalClients,
	}
}

type ErrorDetail struct {
	Code        string     `json:"code,omitempty"`
	Message     string     `json:"message"`
	Field       string     `json:"field,omitempty"`
	PaymentID   string     `json:"paymentId,omitempty"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
