package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"loan-tracker/internal/api/handler/dto"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// QuoteHandler exposes the amortization calculator without touching storage.
type QuoteHandler struct {
	logger *slog.Logger
}

func NewQuoteHandler(l *slog.Logger) *QuoteHandler {
	return &QuoteHandler{logger: l.With("component", "QuoteHandler")}
}

// Quote previews the periodic payment and schedule of a loan.
//
// @Summary Amortization quote
// @Description Computes the fixed periodic payment for the given terms. When startDate is present the installment schedule is included.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.QuoteRequest true "Loan terms"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid terms"
// @Router /amortization/quote [post]
// @Security BearerAuth
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req dto.QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if !req.Principal.IsPositive() {
		respondError(w, apperrors.NewValidationError("principal", "principal must be greater than zero"))
		return
	}
	if req.InterestRate.IsNegative() {
		respondError(w, apperrors.NewValidationError("interestRate", "interest rate cannot be negative"))
		return
	}

	periodType := loan.PeriodType(req.PeriodType)
	periodic, err := loan.ComputePeriodicPayment(req.Principal.InexactFloat64(), req.InterestRate.InexactFloat64(), req.InstallmentCount, periodType)
	if err != nil {
		respondError(w, err)
		return
	}

	total := decimal.NewFromFloat(periodic).Mul(decimal.NewFromInt(int64(req.InstallmentCount)))
	resp := dto.QuoteResponse{
		PeriodicPayment: decimal.NewFromFloat(periodic).StringFixed(2),
		TotalPayable:    total.StringFixed(2),
		TotalInterest:   total.Sub(req.Principal).StringFixed(2),
	}

	if req.StartDate != "" {
		start, err := dto.ParseDate("startDate", req.StartDate)
		if err != nil {
			respondError(w, err)
			return
		}
		schedule, err := loan.GenerateSchedule(start, req.InstallmentCount, periodType, periodic)
		if err != nil {
			respondError(w, err)
			return
		}
		resp.Installments = dto.NewInstallmentResponses(schedule)
	}

	respondJSON(w, http.StatusOK, resp)
}
