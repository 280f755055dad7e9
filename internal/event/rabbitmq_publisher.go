package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/infrastructure/monitoring"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyClientCreated   = "client.created"
	routingKeyClientUpdated   = "client.updated"
	routingKeyLoanCreated     = "loan.created"
	routingKeyLoanOverdue     = "loan.overdue"
	routingKeyLoanCompleted   = "loan.completed"
	routingKeyLoanCancelled   = "loan.cancelled"
	routingKeyPaymentRecorded = "payment.recorded"
	publisherAppID            = "loan-tracker"
)

type EventPublisher interface {
	PublishClientCreated(ctx context.Context, event ClientCreatedEvent) error
	PublishClientUpdated(ctx context.Context, event ClientUpdatedEvent) error
	PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error
	PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error
	PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error
}

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQEventPublisher struct {
	openChannel  func() (amqpChannel, error)
	exchangeName string
	logger       *slog.Logger
}

var _ EventPublisher = (*RabbitMQEventPublisher)(nil)

func NewRabbitMQEventPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (*RabbitMQEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return newPublisher(func() (amqpChannel, error) { return conn.Channel() }, exchangeName, logger), nil
}

func newPublisher(openChannel func() (amqpChannel, error), exchangeName string, logger *slog.Logger) *RabbitMQEventPublisher {
	return &RabbitMQEventPublisher{
		openChannel:  openChannel,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQEventPublisher", "exchange", exchangeName),
	}
}

func (p *RabbitMQEventPublisher) publish(ctx context.Context, routingKey string, payload any) (err error) {
	logCtx := p.logger.With(slog.String("routingKey", routingKey))
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		monitoring.RecordEventPublished(routingKey, status)
	}()

	channel, err := p.openChannel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	logCtx.DebugContext(ctx, "Publishing message", "bodySize", len(body))

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        publisherAppID,
		},
	)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message")
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

var _ EventPublisher = NopPublisher{}

func (NopPublisher) PublishClientCreated(context.Context, ClientCreatedEvent) error { return nil }

func (NopPublisher) PublishClientUpdated(context.Context, ClientUpdatedEvent) error { return nil }

func (NopPublisher) PublishLoanCreated(context.Context, LoanCreatedEvent) error { return nil }

func (NopPublisher) PublishLoanStatusChanged(context.Context, LoanStatusChangedEvent) error {
	return nil
}

func (NopPublisher) PublishPaymentRecorded(context.Context, PaymentRecordedEvent) error { return nil }
