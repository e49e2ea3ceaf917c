package service

import (
	"sort"
	"strings"
	"time"

	"github.com/campuscare/triage-service/internal/domain"
	apperrors "github.com/campuscare/triage-service/pkg/util"
)

// TagAction enumerates tag mutation modes.
type TagAction string

const (
	TagActionAdd    TagAction = "add"
	TagActionRemove TagAction = "remove"
	TagActionSet    TagAction = "set"
)

// Forward edges plus the explicit staff reopen edge back to IN_PROGRESS.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {domain.TicketStatusInProgress},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func isReopen(current, next domain.TicketStatus) bool {
	return (current == domain.TicketStatusResolved || current == domain.TicketStatusClosed) &&
		next == domain.TicketStatusInProgress
}

// applyStatus moves the ticket to next, stamping resolved_at/closed_at on
// first entry. Reopening never clears the stamps; they are the audit trail
// of first resolution and closure. Setting the current status is a no-op.
func applyStatus(ticket *domain.Ticket, next domain.TicketStatus, now time.Time) error {
	if next == ticket.Status {
		return nil
	}
	if !isValidTransition(ticket.Status, next) {
		return apperrors.NewStateConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}
	ticket.Status = next
	switch next {
	case domain.TicketStatusResolved:
		if ticket.ResolvedAt == nil {
			stamp := now
			ticket.ResolvedAt = &stamp
		}
	case domain.TicketStatusClosed:
		if ticket.ClosedAt == nil {
			stamp := now
			ticket.ClosedAt = &stamp
		}
	}
	return nil
}

// applyTags performs an idempotent, order-insensitive tag mutation. Tags
// are trimmed and deduplicated; the result is sorted so repeated
// applications compare equal.
func applyTags(current []string, action TagAction, tags []string) ([]string, error) {
	incoming := normalizeTags(tags)
	switch action {
	case TagActionAdd:
		merged := make(map[string]struct{}, len(current)+len(incoming))
		for _, tag := range normalizeTags(current) {
			merged[tag] = struct{}{}
		}
		for _, tag := range incoming {
			merged[tag] = struct{}{}
		}
		return sortedTags(merged), nil
	case TagActionRemove:
		drop := make(map[string]struct{}, len(incoming))
		for _, tag := range incoming {
			drop[tag] = struct{}{}
		}
		kept := make(map[string]struct{})
		for _, tag := range normalizeTags(current) {
			if _, gone := drop[tag]; !gone {
				kept[tag] = struct{}{}
			}
		}
		return sortedTags(kept), nil
	case TagActionSet:
		replaced := make(map[string]struct{}, len(incoming))
		for _, tag := range incoming {
			replaced[tag] = struct{}{}
		}
		return sortedTags(replaced), nil
	default:
		return nil, apperrors.NewValidationError("unknown tag action", map[string]any{
			"action": string(action),
		})
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func sortedTags(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
