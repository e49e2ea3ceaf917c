package events

import (
	"time"

	"github.com/campuscare/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventCrisisDetected      EventType = "crisis_detected"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventResponseAdded       EventType = "ticket_response_added"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// Event represents a domain event emitted by the orchestrator.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	ActorID   int64       `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	OwnerID      int64                 `json:"owner_id"`
	CategoryID   int64                 `json:"category_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Subject      string                `json:"subject"`
	CrisisFlag   bool                  `json:"crisis_flag"`
}

// CrisisDetectedPayload payload.
type CrisisDetectedPayload struct {
	TicketNumber string   `json:"ticket_number"`
	Keywords     []string `json:"keywords"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID   *int64                `json:"assignee_id,omitempty"`
	OwnerID      int64                 `json:"owner_id"`
	TicketNumber string                `json:"ticket_number"`
	Mode         domain.AssignmentMode `json:"mode"`
	Reason       string                `json:"reason,omitempty"`
	CrisisFlag   bool                  `json:"crisis_flag"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ResponseAddedPayload payload.
type ResponseAddedPayload struct {
	ResponseID   int64       `json:"response_id"`
	OwnerID      int64       `json:"owner_id"`
	AssigneeID   *int64      `json:"assignee_id,omitempty"`
	AuthorRole   domain.Role `json:"author_role"`
	IsInternal   bool        `json:"is_internal"`
	TicketNumber string      `json:"ticket_number"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketNumber string `json:"ticket_number"`
	OwnerID      int64  `json:"owner_id"`
	Reason       string `json:"reason"`
}
