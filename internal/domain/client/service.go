package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loan-tracker/internal/event"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
)

const (
	inputValidationPassed = "Input validation passed"
	clientNotFound        = "Client not found by repository"
)

type ClientService interface {
	CreateClient(ctx context.Context, details Details) (*Client, error)
	GetClient(ctx context.Context, clientID uuid.UUID) (*Client, error)
	ListClients(ctx context.Context, activeOnly bool) ([]*Client, error)
	UpdateClient(ctx context.Context, clientID uuid.UUID, details Details) (*Client, error)
	DeactivateClient(ctx context.Context, clientID uuid.UUID) error
	ReactivateClient(ctx context.Context, clientID uuid.UUID) error
	DeleteClient(ctx context.Context, clientID uuid.UUID) error
}

var _ ClientService = (*clientService)(nil)

type clientService struct {
	repo   ClientRepository
	loans  ActiveLoanChecker
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewClientService(repo ClientRepository, loans ActiveLoanChecker, eventPublisher event.EventPublisher, logger *slog.Logger) ClientService {
	if repo == nil {
		panic("client repository cannot be nil")
	}
	if loans == nil {
		panic("active loan checker cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewClientService, using default stderr handler")
	}

	if eventPublisher == nil {
		logger.Warn("No event publisher provided to NewClientService, events will be dropped")
		eventPublisher = event.NopPublisher{}
	}

	return &clientService{
		repo:   repo,
		loans:  loans,
		pub:    eventPublisher,
		logger: logger.With(slog.String("component", "clientService")),
	}
}

func NewClientEventPayload(c *Client) event.ClientEventPayload {
	if c == nil {
		return event.ClientEventPayload{}
	}
	return event.ClientEventPayload{
		ClientID:     c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Document:     c.Document,
		Active:       c.Active,
		RegisteredAt: c.RegisteredAt,
	}
}

func validateDetails(d Details) error {
	if d.FirstName == "" {
		return apperrors.NewValidationError("firstName", "first name cannot be empty")
	}
	if d.LastName == "" {
		return apperrors.NewValidationError("lastName", "last name cannot be empty")
	}
	if d.Document == "" {
		return apperrors.NewValidationError("document", "document cannot be empty")
	}
	return nil
}

func (s *clientService) publishClientUpdated(ctx context.Context, c *Client) {
	logger := s.logger.With(slog.String("clientID", c.ID.String()))
	evt := event.ClientUpdatedEvent{
		Timestamp: time.Now(),
		Payload:   NewClientEventPayload(c),
	}
	if err := s.pub.PublishClientUpdated(ctx, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish client update event", slog.Any("error", err))
		return
	}
	logger.InfoContext(ctx, "Successfully published client update event")
}

func (s *clientService) CreateClient(ctx context.Context, details Details) (*Client, error) {
	s.logger.InfoContext(ctx, "Attempting to create new client")

	details = details.normalize()
	if err := validateDetails(details); err != nil {
		s.logger.WarnContext(ctx, "Validation failed for new client", slog.Any("error", err))
		return nil, err
	}
	s.logger.InfoContext(ctx, inputValidationPassed)

	c := NewClient(details)
	logger := s.logger.With(slog.String("clientID", c.ID.String()))

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			logger.WarnContext(ctx, "Client document already registered", slog.String("document", c.Document))
			return nil, ErrDuplicateDocument
		}
		logger.ErrorContext(ctx, "Repository failed to save new client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new client: %w", err)
	}

	createdEvent := event.ClientCreatedEvent{
		Timestamp: time.Now(),
		Payload:   NewClientEventPayload(c),
	}
	if pubErr := s.pub.PublishClientCreated(ctx, createdEvent); pubErr != nil {
		logger.ErrorContext(ctx, "Client created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully created new client")
	return c, nil
}

func (s *clientService) GetClient(ctx context.Context, clientID uuid.UUID) (*Client, error) {
	logger := s.logger.With(slog.String("clientID", clientID.String()))

	c, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, clientNotFound)
			return nil, ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository error finding client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get client %s: %w", clientID, err)
	}
	return c, nil
}

func (s *clientService) ListClients(ctx context.Context, activeOnly bool) ([]*Client, error) {
	s.logger.DebugContext(ctx, "Calling repository FindAll", slog.Bool("activeOnly", activeOnly))

	clients, err := s.repo.FindAll(ctx, activeOnly)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing clients", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved clients", slog.Int("count", len(clients)))
	return clients, nil
}

func (s *clientService) UpdateClient(ctx context.Context, clientID uuid.UUID, details Details) (*Client, error) {
	logger := s.logger.With(slog.String("clientID", clientID.String()))
	logger.InfoContext(ctx, "Attempting to update client")

	details = details.normalize()
	if err := validateDetails(details); err != nil {
		logger.WarnContext(ctx, "Validation failed for client update", slog.Any("error", err))
		return nil, err
	}

	c, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if !c.Update(details) {
		logger.InfoContext(ctx, "No client change needed, skipping save")
		return c, nil
	}

	if err := s.repo.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			logger.WarnContext(ctx, "Client document already registered", slog.String("document", c.Document))
			return nil, ErrDuplicateDocument
		case errors.Is(err, apperrors.ErrNotFound):
			logger.ErrorContext(ctx, "Client disappeared before save completed")
			return nil, ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository failed to save updated client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save client %s: %w", clientID, err)
	}

	s.publishClientUpdated(ctx, c)
	logger.InfoContext(ctx, "Successfully updated client")
	return c, nil
}

func (s *clientService) DeactivateClient(ctx context.Context, clientID uuid.UUID) error {
	return s.setActive(ctx, clientID, false)
}

func (s *clientService) ReactivateClient(ctx context.Context, clientID uuid.UUID) error {
	return s.setActive(ctx, clientID, true)
}

func (s *clientService) setActive(ctx context.Context, clientID uuid.UUID, active bool) error {
	logger := s.logger.With(slog.String("clientID", clientID.String()), slog.Bool("isActive", active))
	logger.InfoContext(ctx, "Calling repository SetActiveStatus")

	if err := s.repo.SetActiveStatus(ctx, clientID, active); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, clientNotFound)
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository error changing client active status", slog.Any("error", err))
		return fmt.Errorf("failed to set active status for client %s: %w", clientID, err)
	}

	updated, fetchErr := s.repo.FindByID(ctx, clientID)
	if fetchErr != nil {
		logger.ErrorContext(ctx, "Successfully updated status, but FAILED to re-fetch client for event publishing", slog.Any("error", fetchErr))
	} else {
		s.publishClientUpdated(ctx, updated)
	}

	logger.InfoContext(ctx, "Successfully changed client active status")
	return nil
}

func (s *clientService) DeleteClient(ctx context.Context, clientID uuid.UUID) error {
	logger := s.logger.With(slog.String("clientID", clientID.String()))
	logger.InfoContext(ctx, "Attempting to delete client")

	hasLoans, err := s.loans.HasActiveLoans(ctx, clientID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to check client loans before delete", slog.Any("error", err))
		return fmt.Errorf("failed to check loans of client %s: %w", clientID, err)
	}
	if hasLoans {
		logger.WarnContext(ctx, "Business rule failed: client still has active loans")
		return ErrClientHasActiveLoans
	}

	if err := s.repo.Delete(ctx, clientID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, clientNotFound)
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository error deleting client", slog.Any("error", err))
		return fmt.Errorf("failed to delete client %s: %w", clientID, err)
	}

	logger.InfoContext(ctx, "Successfully deleted client")
	return nil
}
