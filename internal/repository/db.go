package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts a pgx pool or an open transaction; repositories run against
// either without knowing which.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories bound to one DB handle. Orchestrator
// operations receive a transaction-bound Store so ticket, response and
// attachment writes share one transactional boundary.
type Store struct {
	Tickets     TicketRepository
	Responses   ResponseRepository
	Attachments AttachmentRepository
	Categories  CategoryRepository
	Staff       StaffRepository
}

// NewStore builds a Store over the given handle.
func NewStore(db DB) *Store {
	return &Store{
		Tickets:     NewTicketRepository(db),
		Responses:   NewResponseRepository(db),
		Attachments: NewAttachmentRepository(db),
		Categories:  NewCategoryRepository(db),
		Staff:       NewStaffRepository(db),
	}
}
