package assignment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campuscare/triage-service/internal/domain"
	"github.com/campuscare/triage-service/internal/repository"
	apperrors "github.com/campuscare/triage-service/pkg/util"
)

// Outcome is the explicit result of an auto-assignment run. Routing failure
// is a value, not an error: the orchestrator logs it and keeps the ticket.
type Outcome struct {
	Assigned bool
	Assignee *domain.StaffMember
	Reason   string
}

// Engine routes new tickets to the least-loaded eligible staff member.
// Category-to-role policy is injected from the catalog, never hardcoded;
// only the fallback role is configuration.
type Engine struct {
	defaultRole domain.Role
	logger      *zap.Logger
}

// NewEngine builds the engine.
func NewEngine(defaultRole domain.Role, logger *zap.Logger) *Engine {
	if defaultRole == "" {
		defaultRole = domain.RoleCounselor
	}
	return &Engine{defaultRole: defaultRole, logger: logger}
}

// EligibleRoles resolves the roles allowed to take a category's tickets,
// falling back to the default role when the catalog has no mapping.
func (e *Engine) EligibleRoles(category *domain.Category) []domain.Role {
	if category != nil && len(category.EligibleRoles) > 0 {
		return category.EligibleRoles
	}
	return []domain.Role{e.defaultRole}
}

// AutoAssign selects the active eligible staff member with the fewest open
// tickets and writes the assignment. Must run inside the same transaction
// that created the ticket so the workload read and the assignment cannot
// race far apart. Zero candidates is not fatal: the ticket stays
// unassigned and the outcome carries the routing-failure reason.
func (e *Engine) AutoAssign(ctx context.Context, store *repository.Store, ticket *domain.Ticket, category *domain.Category) (Outcome, error) {
	roles := e.EligibleRoles(category)
	workloads, err := store.Staff.ListActiveWithWorkload(ctx, roles)
	if err != nil {
		return Outcome{}, err
	}
	if len(workloads) == 0 {
		e.logger.Warn("routing failure: no eligible active staff",
			zap.String("ticket_number", ticket.TicketNumber),
			zap.Int64("category_id", ticket.CategoryID))
		ticket.AutoAssigned = domain.AssignmentModeNone
		return Outcome{Assigned: false, Reason: "no eligible active staff"}, nil
	}

	// Repository orders by workload ascending, id ascending; head is the pick.
	pick := workloads[0]
	now := time.Now()
	ticket.AssignedTo = &pick.Staff.ID
	ticket.AutoAssigned = domain.AssignmentModeAuto
	ticket.AssignedAt = &now
	if err := store.Tickets.Update(ctx, ticket); err != nil {
		return Outcome{}, err
	}
	e.logger.Info("ticket auto-assigned",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.Int64("assignee_id", pick.Staff.ID),
		zap.Int("assignee_open_tickets", pick.OpenTickets))
	staff := pick.Staff
	return Outcome{Assigned: true, Assignee: &staff}, nil
}

// ValidateManualTarget checks an admin-chosen assignee: must be active
// staff, and unless they are an admin, eligible for the ticket's category.
func (e *Engine) ValidateManualTarget(target *domain.StaffMember, category *domain.Category) error {
	if target == nil || !target.Role.IsStaff() {
		return apperrors.NewValidationError("assignee must be a staff member", map[string]any{
			"assignee_id": "not a staff member",
		})
	}
	if target.Status != domain.PrincipalStatusActive {
		return apperrors.NewValidationError("assignee is not active", map[string]any{
			"assignee_id": "inactive",
		})
	}
	if target.Role == domain.RoleAdmin {
		return nil
	}
	for _, role := range e.EligibleRoles(category) {
		if role == target.Role {
			return nil
		}
	}
	return apperrors.NewValidationError("assignee not eligible for ticket category", map[string]any{
		"assignee_id": "role not eligible for category",
	})
}
