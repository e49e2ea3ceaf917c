package domain

import "time"

// ResponseVisibility narrows which staff roles can read a response.
type ResponseVisibility string

const (
	VisibilityAll        ResponseVisibility = "ALL"
	VisibilityCounselors ResponseVisibility = "COUNSELORS"
	VisibilityAdmins     ResponseVisibility = "ADMINS"
)

// TicketResponse is one message in a ticket's conversation thread.
// Responses are immutable once created.
type TicketResponse struct {
	ID         int64
	TicketID   int64
	AuthorID   int64
	AuthorRole Role
	Message    string
	IsInternal bool
	Visibility ResponseVisibility
	IsUrgent   bool
	CreatedAt  time.Time
}

// VisibleTo reports whether the principal may read this response.
// Students never see internal notes; COUNSELORS visibility admits
// counselors and admins, ADMINS visibility admits admins only.
func (r *TicketResponse) VisibleTo(p Principal) bool {
	if p.Role == RoleAdmin {
		return true
	}
	if !p.Role.IsStaff() {
		return !r.IsInternal && r.Visibility == VisibilityAll
	}
	switch r.Visibility {
	case VisibilityAdmins:
		return false
	case VisibilityCounselors:
		return p.Role == RoleCounselor
	default:
		return true
	}
}
