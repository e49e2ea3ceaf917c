package repository

import (
	"context"

	"github.com/campuscare/triage-service/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.TicketAttachment) error
	GetByID(ctx context.Context, id int64) (*domain.TicketAttachment, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error)
	ListByResponse(ctx context.Context, responseID int64) ([]domain.TicketAttachment, error)
}

type attachmentRepository struct {
	db DB
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

const attachmentColumns = `id, ticket_id, response_id, file_name, storage_path, storage_tier, mime_type, size_bytes, uploaded_by, created_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.TicketAttachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, response_id, file_name, storage_path, storage_tier, mime_type, size_bytes, uploaded_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.ResponseID,
		attachment.FileName,
		attachment.StoragePath,
		attachment.StorageTier,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.UploadedBy,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id int64) (*domain.TicketAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM ticket_attachments WHERE id=$1`
	var attachment domain.TicketAttachment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.ResponseID,
		&attachment.FileName,
		&attachment.StoragePath,
		&attachment.StorageTier,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.UploadedBy,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, ticketID)
}

func (r *attachmentRepository) ListByResponse(ctx context.Context, responseID int64) ([]domain.TicketAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM ticket_attachments WHERE response_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, responseID)
}

func (r *attachmentRepository) list(ctx context.Context, query string, arg any) ([]domain.TicketAttachment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAttachment
	for rows.Next() {
		var attachment domain.TicketAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.ResponseID,
			&attachment.FileName,
			&attachment.StoragePath,
			&attachment.StorageTier,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.UploadedBy,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
