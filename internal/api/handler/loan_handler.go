package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"loan-tracker/internal/api/handler/dto"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
	now     func() time.Time
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
		now:     time.Now,
	}
}

func loanFilterFromQuery(r *http.Request) (loan.LoanFilter, error) {
	var filter loan.LoanFilter
	q := r.URL.Query()
	if raw := q.Get("clientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid clientId: %s", apperrors.ErrInvalidArgument, raw)
		}
		filter.ClientID = &id
	}
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			st, err := loan.ParseLoanStatus(s)
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	return filter, nil
}

// CreateLoan handles the creation of a new loan.
//
// @Summary Create a new loan
// @Description Creates a loan for an active client. The periodic payment and the installment schedule are computed with the French amortization formula.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request payload"
// @Success 201 {object} dto.LoanResponse "Loan successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 404 {object} dto.ErrorResponse "Client not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.Params()
	if err != nil {
		respondError(w, err)
		return
	}

	createdLoan, err := h.service.CreateLoan(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(createdLoan, true))
}

// ListLoans lists loans, newest first.
//
// @Summary List loans
// @Tags Loans
// @Produce json
// @Param clientId query string false "Only loans of this client"
// @Param status query string false "Comma separated statuses (active, overdue, completed, cancelled)"
// @Success 200 {array} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	filter, err := loanFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	loans, err := h.service.ListLoans(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponses(loans))
}

// GetLoan retrieves the details of a specific loan.
//
// @Summary Retrieve loan details
// @Description Returns the loan with its installments. Pending installments past their due date are marked overdue before the loan is returned.
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan, true))
}

// CancelLoan cancels an active or overdue loan.
//
// @Summary Cancel a loan
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan cancelled"
// @Failure 400 {object} dto.ErrorResponse "Loan is completed or already cancelled"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/cancel [put]
// @Security BearerAuth
func (h *LoanHandler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	cancelled, err := h.service.CancelLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(cancelled, false))
}

// ApplyPayment registers a payment against a loan.
//
// @Summary Make a loan payment
// @Description Records the payment, then updates installments, outstanding balance and status. If the payment is stored but the loan update fails, the response is 500 and carries the payment id.
// @Tags Payments
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param request body dto.ApplyPaymentRequest true "Payment request payload"
// @Success 201 {object} dto.ApplyPaymentResponse "Payment applied"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload, or the loan does not accept the payment"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ApplyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.Params(loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	payment, err := h.service.ApplyPayment(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Payment applied but reloading the loan failed", slog.Any("error", err))
		respondJSON(w, http.StatusCreated, dto.ApplyPaymentResponse{Payment: dto.NewPaymentResponse(payment)})
		return
	}
	respondJSON(w, http.StatusCreated, dto.ApplyPaymentResponse{
		Payment: dto.NewPaymentResponse(payment),
		Loan:    dto.NewLoanResponse(updated, true),
	})
}

// ListLoanPayments lists the payments of one loan.
//
// @Summary List payments of a loan
// @Tags Payments
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {array} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/payments [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoanPayments(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := h.service.GetLoan(r.Context(), loanID); err != nil {
		respondError(w, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), &loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPaymentResponses(payments))
}

// ListPayments lists every payment, newest first.
//
// @Summary List all payments
// @Tags Payments
// @Produce json
// @Success 200 {array} dto.PaymentResponse
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments [get]
// @Security BearerAuth
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), nil)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPaymentResponses(payments))
}

// CheckOverdue runs the overdue sweep on demand.
//
// @Summary Run overdue detection
// @Description Marks pending installments due before today as overdue and returns the loans that changed. A failure on one loan does not stop the others, but any failure turns the response into an error.
// @Tags Loans
// @Produce json
// @Success 200 {object} dto.OverdueCheckResponse
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/overdue-check [post]
// @Security BearerAuth
func (h *LoanHandler) CheckOverdue(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	ids, err := h.service.DetectOverdueInstallments(r.Context(), now)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Overdue check finished with errors",
			slog.Int("loans_changed", len(ids)), slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.OverdueCheckResponse{CheckedAt: now, LoanIDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.LoanIDs = append(resp.LoanIDs, id.String())
	}
	respondJSON(w, http.StatusOK, resp)
}

// Dashboard returns portfolio totals.
//
// @Summary Dashboard metrics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.DashboardResponse
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /dashboard [get]
// @Security BearerAuth
func (h *LoanHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.DashboardMetrics(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewDashboardResponse(metrics))
}
