package triage

import "github.com/campuscare/triage-service/internal/domain"

// Escalation is the classification applied to a new ticket before persistence.
type Escalation struct {
	CategoryID     int64
	Priority       domain.TicketPriority
	PriorityScore  float64
	CrisisFlag     bool
	CrisisKeywords []string
}

// Escalate applies the crisis signal to the submitter-selected category and
// priority. A detected crisis forces URGENT priority and the designated
// crisis category unless the ticket was already filed there. Runs exactly
// once, at creation time; edits never re-trigger it.
func Escalate(categoryID int64, crisisCategoryID int64, priority domain.TicketPriority, crisis CrisisResult) Escalation {
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	esc := Escalation{
		CategoryID: categoryID,
		Priority:   priority,
	}
	if crisis.Detected {
		esc.Priority = domain.TicketPriorityUrgent
		esc.CrisisFlag = true
		esc.CrisisKeywords = crisis.Keywords
		if categoryID != crisisCategoryID {
			esc.CategoryID = crisisCategoryID
		}
	}
	esc.PriorityScore = PriorityScore(esc.Priority, esc.CrisisFlag)
	return esc
}

// PriorityScore derives the queue-ordering score for a ticket.
func PriorityScore(priority domain.TicketPriority, crisis bool) float64 {
	var base float64
	switch priority {
	case domain.TicketPriorityLow:
		base = 10
	case domain.TicketPriorityMedium:
		base = 20
	case domain.TicketPriorityHigh:
		base = 30
	case domain.TicketPriorityUrgent:
		base = 40
	default:
		base = 20
	}
	if crisis {
		base += 25
	}
	return base
}
