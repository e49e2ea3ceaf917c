package triage

import "github.com/campuscare/triage-service/internal/domain"

// Capabilities is the per-principal, per-ticket set of allowed operations.
type Capabilities struct {
	View       bool
	Modify     bool
	Respond    bool
	Assign     bool
	Delete     bool
	ManageTags bool
}

// None is the empty capability set.
var None = Capabilities{}

// Evaluate resolves the capability set for a principal against a ticket.
// Pure function; first matching rule wins:
//
//	admin                               -> everything
//	staff assigned to the ticket        -> view, modify (unless closed), respond, tags
//	staff eligible for the category     -> view, respond
//	ticket owner (student)              -> view, modify while open, respond unless closed
//	anyone else                         -> nothing
//
// eligibleRoles comes from the category catalog entry for the ticket.
func Evaluate(p domain.Principal, ticket *domain.Ticket, eligibleRoles []domain.Role) Capabilities {
	if ticket == nil {
		return None
	}
	if p.Role == domain.RoleAdmin {
		return Capabilities{View: true, Modify: true, Respond: true, Assign: true, Delete: true, ManageTags: true}
	}
	if p.Role.IsStaff() {
		if ticket.IsAssignedTo(p.ID) {
			return Capabilities{
				View:       true,
				Modify:     ticket.Status != domain.TicketStatusClosed,
				Respond:    true,
				ManageTags: true,
			}
		}
		if roleIn(p.Role, eligibleRoles) {
			return Capabilities{View: true, Respond: true}
		}
		return None
	}
	if ticket.OwnerID == p.ID {
		return Capabilities{
			View:    true,
			Modify:  ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusInProgress,
			Respond: ticket.Status != domain.TicketStatusClosed,
		}
	}
	return None
}

func roleIn(role domain.Role, roles []domain.Role) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}
