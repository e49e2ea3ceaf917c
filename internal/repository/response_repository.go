package repository

import (
	"context"

	"github.com/campuscare/triage-service/internal/domain"
)

// ResponseRepository manages ticket thread responses. Responses are
// append-only; there is no update or single-row delete.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.TicketResponse) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketResponse, error)
	GetByID(ctx context.Context, id int64) (*domain.TicketResponse, error)
}

type responseRepository struct {
	db DB
}

// NewResponseRepository builds repository.
func NewResponseRepository(db DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Create(ctx context.Context, response *domain.TicketResponse) error {
	const query = `
        INSERT INTO ticket_responses (ticket_id, author_id, author_role, message, is_internal, visibility, is_urgent)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		response.TicketID,
		response.AuthorID,
		response.AuthorRole,
		response.Message,
		response.IsInternal,
		response.Visibility,
		response.IsUrgent,
	).Scan(&response.ID, &response.CreatedAt)
}

func (r *responseRepository) GetByID(ctx context.Context, id int64) (*domain.TicketResponse, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_role, message, is_internal, visibility, is_urgent, created_at
        FROM ticket_responses WHERE id=$1`
	var response domain.TicketResponse
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&response.ID,
		&response.TicketID,
		&response.AuthorID,
		&response.AuthorRole,
		&response.Message,
		&response.IsInternal,
		&response.Visibility,
		&response.IsUrgent,
		&response.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketResponse, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_role, message, is_internal, visibility, is_urgent, created_at
        FROM ticket_responses WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketResponse
	for rows.Next() {
		var response domain.TicketResponse
		if err := rows.Scan(
			&response.ID,
			&response.TicketID,
			&response.AuthorID,
			&response.AuthorRole,
			&response.Message,
			&response.IsInternal,
			&response.Visibility,
			&response.IsUrgent,
			&response.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, response)
	}
	return result, rows.Err()
}
