package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ClientEventPayload struct {
	ClientID     uuid.UUID `json:"clientId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Document     string    `json:"document"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type ClientCreatedEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Payload   ClientEventPayload `json:"payload"`
}

type ClientUpdatedEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Payload   ClientEventPayload `json:"payload"`
}

func (p *RabbitMQEventPublisher) PublishClientCreated(ctx context.Context, event ClientCreatedEvent) error {
	return p.publish(ctx, routingKeyClientCreated, event)
}

func (p *RabbitMQEventPublisher) PublishClientUpdated(ctx context.Context, event ClientUpdatedEvent) error {
	return p.publish(ctx, routingKeyClientUpdated, event)
}
