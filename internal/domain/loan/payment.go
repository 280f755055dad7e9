package loan

import (
	"fmt"
	"time"

	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentInstallment    PaymentType = "installment"
	PaymentPartial        PaymentType = "partial"
	PaymentFullSettlement PaymentType = "full_settlement"
)

func ParsePaymentType(s string) (PaymentType, error) {
	switch t := PaymentType(s); t {
	case PaymentInstallment, PaymentPartial, PaymentFullSettlement:
		return t, nil
	}
	return "", apperrors.NewValidationError("type", fmt.Sprintf("unknown payment type %q", s))
}

// Payment is append-only; nothing mutates it after SavePayment.
type Payment struct {
	ID                uuid.UUID
	LoanID            uuid.UUID
	ClientID          uuid.UUID
	ClientName        string
	Amount            float64
	Date              time.Time
	Type              PaymentType
	InstallmentNumber *int
	Notes             string
	CreatedAt         time.Time
}
