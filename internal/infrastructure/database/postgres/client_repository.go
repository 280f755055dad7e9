package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const clientColumns = `id, first_name, last_name, document, phone, email, address, active, registered_at, updated_at`

type ClientRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ client.ClientRepository = (*ClientRepository)(nil)

func NewClientRepository(db DBPool, logger *slog.Logger) *ClientRepository {
	if db == nil {
		panic("DBPool cannot be nil for ClientRepository")
	}
	return &ClientRepository{
		db:     db,
		logger: logger.With("component", "ClientRepository"),
	}
}

func scanClient(row pgx.Row) (*client.Client, error) {
	var c client.Client
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Document,
		&c.Phone,
		&c.Email,
		&c.Address,
		&c.Active,
		&c.RegisteredAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) Create(ctx context.Context, c *client.Client) (err error) {
	defer func(start time.Time) { observeQuery("CreateClient", start, err) }(time.Now())

	query := `
        INSERT INTO clients (` + clientColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		c.ID, c.FirstName, c.LastName, c.Document, c.Phone, c.Email, c.Address,
		c.Active, c.RegisteredAt, c.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert client", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Client inserted successfully", slog.String("clientID", c.ID.String()))
	return nil
}

func (r *ClientRepository) Update(ctx context.Context, c *client.Client) error {
	query := `
        UPDATE clients
        SET first_name = $1,
            last_name = $2,
            document = $3,
            phone = $4,
            email = $5,
            address = $6,
            active = $7,
            updated_at = $8
        WHERE id = $9`

	cmdTag, err := r.db.Exec(ctx, query,
		c.FirstName, c.LastName, c.Document, c.Phone, c.Email, c.Address, c.Active, c.UpdatedAt, c.ID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update client", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, client likely not found")
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ClientRepository) FindByID(ctx context.Context, clientID uuid.UUID) (c *client.Client, err error) {
	defer func(start time.Time) { observeQuery("FindClientByID", start, err) }(time.Now())

	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	c, err = scanClient(r.db.QueryRow(ctx, query, clientID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return c, nil
}

func (r *ClientRepository) FindAll(ctx context.Context, activeOnly bool) ([]*client.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	args := []any{}
	if activeOnly {
		query += " WHERE active = $1"
		args = append(args, true)
	}
	query += " ORDER BY registered_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query clients", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query clients: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	clients := make([]*client.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan client row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan client row: %w", apperrors.ErrDatabase, err)
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating client rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating client rows: %w", apperrors.ErrDatabase, err)
	}

	return clients, nil
}

func (r *ClientRepository) Delete(ctx context.Context, clientID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, clientID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute delete client", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete client: %w", apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Delete affected zero rows, client likely not found")
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Client deleted successfully", slog.String("clientID", clientID.String()))
	return nil
}

func (r *ClientRepository) SetActiveStatus(ctx context.Context, clientID uuid.UUID, isActive bool) error {
	query := `UPDATE clients SET active = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, isActive, clientID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update active status", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update active status: %w", apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update active status affected zero rows, client likely not found")
		return apperrors.ErrNotFound
	}
	return nil
}
