package dto

import (
	"time"

	"github.com/campuscare/triage-service/internal/domain"
)

// CreateTicketRequest payload. Attachments ride in the same multipart form
// under the "files" field.
type CreateTicketRequest struct {
	Subject     string                `json:"subject" form:"subject" validate:"required,max=200"`
	Description string                `json:"description" form:"description" validate:"required,max=10000"`
	CategoryID  int64                 `json:"category_id" form:"category_id" validate:"required,gt=0"`
	Priority    domain.TicketPriority `json:"priority" form:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	OwnerID     int64                 `json:"owner_id" form:"owner_id" validate:"omitempty,gt=0"`
}

// AddResponseRequest payload.
type AddResponseRequest struct {
	Message    string                    `json:"message" form:"message" validate:"required,max=10000"`
	IsInternal bool                      `json:"is_internal" form:"is_internal"`
	Visibility domain.ResponseVisibility `json:"visibility" form:"visibility" validate:"omitempty,oneof=ALL COUNSELORS ADMINS"`
	IsUrgent   bool                      `json:"is_urgent" form:"is_urgent"`
}

// UpdateTicketRequest payload; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Subject     *string                `json:"subject" validate:"omitempty,max=200"`
	Description *string                `json:"description" validate:"omitempty,max=10000"`
	Status      *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	CategoryID  *int64                 `json:"category_id" validate:"omitempty,gt=0"`
}

// AssignTicketRequest payload; null assignee_id clears the assignment.
type AssignTicketRequest struct {
	AssigneeID *int64 `json:"assignee_id" validate:"omitempty,gt=0"`
	Reason     string `json:"reason" validate:"max=500"`
}

// ManageTagsRequest payload.
type ManageTagsRequest struct {
	Action string   `json:"action" validate:"required,oneof=add remove set"`
	Tags   []string `json:"tags" validate:"dive,max=50"`
}

// DeleteTicketRequest payload.
type DeleteTicketRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TicketSummary response.
type TicketSummary struct {
	ID               int64                 `json:"id"`
	TicketNumber     string                `json:"ticket_number"`
	OwnerID          int64                 `json:"owner_id"`
	AssignedTo       *int64                `json:"assigned_to"`
	CategoryID       int64                 `json:"category_id"`
	Subject          string                `json:"subject"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	PriorityScore    float64               `json:"priority_score"`
	CrisisFlag       bool                  `json:"crisis_flag"`
	AutoAssigned     domain.AssignmentMode `json:"auto_assigned"`
	AssignmentReason string                `json:"assignment_reason,omitempty"`
	Tags             []string              `json:"tags"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with visible thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string               `json:"description"`
	AssignedAt  *time.Time           `json:"assigned_at"`
	ResolvedAt  *time.Time           `json:"resolved_at"`
	ClosedAt    *time.Time           `json:"closed_at"`
	Responses   []ResponseDTO        `json:"responses"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// ResponseDTO represents one thread message.
type ResponseDTO struct {
	ID         int64                     `json:"id"`
	AuthorID   int64                     `json:"author_id"`
	AuthorRole domain.Role               `json:"author_role"`
	Message    string                    `json:"message"`
	IsInternal bool                      `json:"is_internal"`
	Visibility domain.ResponseVisibility `json:"visibility"`
	IsUrgent   bool                      `json:"is_urgent"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          int64     `json:"id"`
	ResponseID  *int64    `json:"response_id,omitempty"`
	FileName    string    `json:"file_name"`
	StorageTier string    `json:"storage_tier"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
