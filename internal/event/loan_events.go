package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type LoanCreatedEvent struct {
	LoanID           uuid.UUID `json:"loanId"`
	ClientID         uuid.UUID `json:"clientId"`
	Principal        float64   `json:"principal"`
	InterestRate     float64   `json:"interestRate"`
	PeriodType       string    `json:"periodType"`
	InstallmentCount int       `json:"installmentCount"`
	PeriodicPayment  float64   `json:"periodicPayment"`
	DueDate          time.Time `json:"dueDate"`
	Timestamp        time.Time `json:"timestamp"`
}

// LoanStatusChangedEvent is routed by its new status: loan.overdue, loan.completed
// or loan.cancelled.
type LoanStatusChangedEvent struct {
	LoanID             uuid.UUID `json:"loanId"`
	ClientID           uuid.UUID `json:"clientId"`
	OldStatus          string    `json:"oldStatus"`
	NewStatus          string    `json:"newStatus"`
	OutstandingBalance float64   `json:"outstandingBalance"`
	Timestamp          time.Time `json:"timestamp"`
}

type PaymentRecordedEvent struct {
	PaymentID          uuid.UUID `json:"paymentId"`
	LoanID             uuid.UUID `json:"loanId"`
	ClientID           uuid.UUID `json:"clientId"`
	Amount             float64   `json:"amount"`
	Type               string    `json:"type"`
	InstallmentNumber  *int      `json:"installmentNumber,omitempty"`
	OutstandingBalance float64   `json:"outstandingBalance"`
	Timestamp          time.Time `json:"timestamp"`
}

func (p *RabbitMQEventPublisher) PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error {
	return p.publish(ctx, routingKeyLoanCreated, event)
}

func (p *RabbitMQEventPublisher) PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error {
	routingKey, err := statusRoutingKey(event.NewStatus)
	if err != nil {
		return err
	}
	return p.publish(ctx, routingKey, event)
}

func (p *RabbitMQEventPublisher) PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error {
	return p.publish(ctx, routingKeyPaymentRecorded, event)
}

func statusRoutingKey(status string) (string, error) {
	switch status {
	case "overdue":
		return routingKeyLoanOverdue, nil
	case "completed":
		return routingKeyLoanCompleted, nil
	case "cancelled":
		return routingKeyLoanCancelled, nil
	default:
		return "", fmt.Errorf("no routing key for loan status %q", status)
	}
}
