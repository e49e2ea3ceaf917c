package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// AssignmentMode records how a ticket received its current assignee.
type AssignmentMode string

const (
	AssignmentModeNone   AssignmentMode = "NO"
	AssignmentModeAuto   AssignmentMode = "YES"
	AssignmentModeManual AssignmentMode = "MANUAL"
)

// Ticket is the aggregate for student support cases.
type Ticket struct {
	ID               int64
	TicketNumber     string
	OwnerID          int64
	AssignedTo       *int64
	CategoryID       int64
	Subject          string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	PriorityScore    float64
	CrisisFlag       bool
	CrisisKeywords   []string
	AutoAssigned     AssignmentMode
	AssignmentReason string
	Tags             []string
	AssignedAt       *time.Time
	ResolvedAt       *time.Time
	ClosedAt         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsAssignedTo reports whether the given staff member holds the ticket.
func (t *Ticket) IsAssignedTo(staffID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == staffID
}
