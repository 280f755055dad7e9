package apperrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	ErrLoanFullyPaid = errors.New("loan is already fully paid")

	ErrLoanClosed = errors.New("loan is closed")

	ErrUnauthorized = errors.New("unauthorized")

	ErrConflict = errors.New("resource conflict")

	ErrAccountLocked = errors.New("account locked")

	ErrPaymentRecorded = errors.New("payment recorded, loan update failed")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// NewValidationErrorWithCause is NewValidationError for rules backed by a sentinel,
// e.g. paying into a completed loan is both ErrValidation and ErrLoanFullyPaid.
func NewValidationErrorWithCause(field, message string, cause error) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message, Cause: cause})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

// PaymentRecordedError reports that a payment was stored but the loan it belongs to
// could not be updated. Callers reconcile using PaymentID.
type PaymentRecordedError struct {
	PaymentID uuid.UUID
	LoanID    uuid.UUID
	Cause     error
}

func (e *PaymentRecordedError) Error() string {
	return fmt.Sprintf("payment %s recorded, update of loan %s failed: %v", e.PaymentID, e.LoanID, e.Cause)
}

func (e *PaymentRecordedError) Unwrap() []error {
	return []error{ErrPaymentRecorded, e.Cause}
}

type LockedError struct {
	Username    string
	LockedUntil time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account %q locked until %s", e.Username, e.LockedUntil.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
