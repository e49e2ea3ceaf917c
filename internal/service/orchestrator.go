package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campuscare/triage-service/internal/assignment"
	"github.com/campuscare/triage-service/internal/domain"
	"github.com/campuscare/triage-service/internal/events"
	"github.com/campuscare/triage-service/internal/observability"
	"github.com/campuscare/triage-service/internal/repository"
	"github.com/campuscare/triage-service/internal/triage"
	apperrors "github.com/campuscare/triage-service/pkg/util"
)

// TxRunner executes a unit of work against a transaction-bound store.
type TxRunner interface {
	InTx(ctx context.Context, fn func(store *repository.Store) error) error
}

// AttachmentGateway is the tiered byte store consumed by the orchestrator.
type AttachmentGateway interface {
	Store(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Resolve(ctx context.Context, tierName, path string) ([]byte, error)
	Remove(ctx context.Context, path string)
}

// Orchestrator composes crisis detection, escalation, access control,
// auto-assignment, attachment storage and the lifecycle state machine into
// atomic ticket operations.
type Orchestrator struct {
	tx         TxRunner
	reads      *repository.Store
	categories repository.CategoryRepository
	gateway    AttachmentGateway
	detector   *triage.CrisisDetector
	engine     *assignment.Engine
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	crisisSlug string
}

// OrchestratorDependencies bundles collaborators.
type OrchestratorDependencies struct {
	Tx             TxRunner
	Reads          *repository.Store
	Categories     repository.CategoryRepository
	Gateway        AttachmentGateway
	Detector       *triage.CrisisDetector
	Engine         *assignment.Engine
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	CrisisCategory string
}

// NewOrchestrator constructs the orchestrator.
func NewOrchestrator(deps OrchestratorDependencies) *Orchestrator {
	return &Orchestrator{
		tx:         deps.Tx,
		reads:      deps.Reads,
		categories: deps.Categories,
		gateway:    deps.Gateway,
		detector:   deps.Detector,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		crisisSlug: deps.CrisisCategory,
	}
}

// FileUpload carries one inbound attachment's bytes and metadata.
type FileUpload struct {
	FileName string
	MimeType string
	Data     []byte
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	OwnerID     int64
	Subject     string
	Description string
	CategoryID  int64
	Priority    domain.TicketPriority
	Files       []FileUpload
}

// AddResponseInput describes a new thread message.
type AddResponseInput struct {
	Message    string
	IsInternal bool
	Visibility domain.ResponseVisibility
	IsUrgent   bool
	Files      []FileUpload
}

// UpdateTicketInput lists the mutable ticket fields; nil means unchanged.
type UpdateTicketInput struct {
	Subject     *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	CategoryID  *int64
}

// AssignTicketInput describes a manual assignment change. A nil AssigneeID
// clears the assignment.
type AssignTicketInput struct {
	AssigneeID *int64
	Reason     string
}

// TicketThread is a fully loaded ticket with its visible conversation.
type TicketThread struct {
	Ticket      *domain.Ticket
	Responses   []domain.TicketResponse
	Attachments []domain.TicketAttachment
}

// CreateTicket classifies, persists, stores attachments for, and routes a
// new support request as one atomic unit.
func (o *Orchestrator) CreateTicket(ctx context.Context, actor domain.Principal, input CreateTicketInput) (*domain.Ticket, error) {
	if !actor.IsActive() {
		return nil, apperrors.NewForbidden("principal is not active")
	}
	fields := map[string]any{}
	if strings.TrimSpace(input.Subject) == "" {
		fields["subject"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		fields["description"] = "required"
	}
	if input.CategoryID == 0 {
		fields["category_id"] = "required"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", fields)
	}

	ownerID := actor.ID
	if input.OwnerID != 0 && input.OwnerID != actor.ID {
		// Staff may file on a student's behalf; students only for themselves.
		if !actor.Role.IsStaff() {
			return nil, apperrors.NewForbidden("students may only file tickets for themselves")
		}
		ownerID = input.OwnerID
	}

	category, err := o.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category_id": "unknown"})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.Active {
		return nil, apperrors.NewValidationError("category inactive", map[string]any{"category_id": "inactive"})
	}

	crisis := o.detector.Scan(input.Description)
	crisisCategoryID := category.ID
	if crisis.Detected {
		crisisCategory, err := o.categories.GetBySlug(ctx, o.crisisSlug)
		if err != nil {
			// Misconfigured catalog: escalate priority anyway, keep category.
			o.logger.Error("crisis category missing from catalog",
				zap.String("slug", o.crisisSlug), zap.Error(err))
			crisisCategoryID = category.ID
		} else {
			crisisCategoryID = crisisCategory.ID
		}
	}
	esc := triage.Escalate(category.ID, crisisCategoryID, input.Priority, crisis)
	if esc.CategoryID != category.ID {
		category, err = o.categories.GetByID(ctx, esc.CategoryID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	ticket := &domain.Ticket{
		TicketNumber:   generateTicketNumber(),
		OwnerID:        ownerID,
		CategoryID:     esc.CategoryID,
		Subject:        strings.TrimSpace(input.Subject),
		Description:    strings.TrimSpace(input.Description),
		Status:         domain.TicketStatusOpen,
		Priority:       esc.Priority,
		PriorityScore:  esc.PriorityScore,
		CrisisFlag:     esc.CrisisFlag,
		CrisisKeywords: esc.CrisisKeywords,
		AutoAssigned:   domain.AssignmentModeNone,
	}

	var outcome assignment.Outcome
	err = o.tx.InTx(ctx, func(store *repository.Store) error {
		if err := store.Tickets.Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		if err := o.storeFiles(ctx, store, ticket, nil, actor.ID, input.Files); err != nil {
			return err
		}
		result, err := o.engine.AutoAssign(ctx, store, ticket, category)
		if err != nil {
			return apperrors.MapError(err)
		}
		outcome = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.Assigned {
		o.metrics.RecordRoutingFailure()
	}
	o.publish(ctx, actor, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			OwnerID:      ticket.OwnerID,
			CategoryID:   ticket.CategoryID,
			Priority:     ticket.Priority,
			Subject:      ticket.Subject,
			CrisisFlag:   ticket.CrisisFlag,
		},
	})
	if ticket.CrisisFlag {
		o.publish(ctx, actor, events.Event{
			Type:     events.EventCrisisDetected,
			TicketID: ticket.ID,
			Payload: events.CrisisDetectedPayload{
				TicketNumber: ticket.TicketNumber,
				Keywords:     ticket.CrisisKeywords,
			},
		})
	}
	if outcome.Assigned {
		o.publish(ctx, actor, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Payload: events.TicketAssignedPayload{
				AssigneeID:   ticket.AssignedTo,
				OwnerID:      ticket.OwnerID,
				TicketNumber: ticket.TicketNumber,
				Mode:         domain.AssignmentModeAuto,
				CrisisFlag:   ticket.CrisisFlag,
			},
		})
	}
	return ticket, nil
}

// AddResponse appends a message to a ticket's thread.
func (o *Orchestrator) AddResponse(ctx context.Context, actor domain.Principal, ticketID int64, input AddResponseInput) (*domain.TicketResponse, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewValidationError("message required", map[string]any{"message": "required"})
	}
	if input.IsInternal && !actor.Role.IsStaff() {
		// Rejected outright, never silently downgraded.
		return nil, apperrors.NewForbidden("only staff may create internal notes")
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = domain.VisibilityAll
	}
	if !actor.Role.IsStaff() && visibility != domain.VisibilityAll {
		return nil, apperrors.NewForbidden("only staff may restrict response visibility")
	}

	response := &domain.TicketResponse{
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Message:    strings.TrimSpace(input.Message),
		IsInternal: input.IsInternal,
		Visibility: visibility,
		IsUrgent:   input.IsUrgent,
	}

	var ticket *domain.Ticket
	err := o.tx.InTx(ctx, func(store *repository.Store) error {
		loaded, caps, err := o.loadWithCapabilities(ctx, store, actor, ticketID)
		if err != nil {
			return err
		}
		ticket = loaded
		if !caps.Respond {
			return apperrors.NewForbidden("not allowed to respond to this ticket")
		}

		response.TicketID = ticket.ID
		if err := store.Responses.Create(ctx, response); err != nil {
			return apperrors.MapError(err)
		}
		if err := o.storeFiles(ctx, store, ticket, &response.ID, actor.ID, input.Files); err != nil {
			return err
		}

		// First staff reply moves an open ticket into progress.
		if actor.Role.IsStaff() && ticket.Status == domain.TicketStatusOpen {
			if err := applyStatus(ticket, domain.TicketStatusInProgress, time.Now()); err != nil {
				return err
			}
			if err := store.Tickets.Update(ctx, ticket); err != nil {
				return apperrors.MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.publish(ctx, actor, events.Event{
		Type:     events.EventResponseAdded,
		TicketID: ticket.ID,
		Payload: events.ResponseAddedPayload{
			ResponseID:   response.ID,
			OwnerID:      ticket.OwnerID,
			AssigneeID:   ticket.AssignedTo,
			AuthorRole:   actor.Role,
			IsInternal:   response.IsInternal,
			TicketNumber: ticket.TicketNumber,
		},
	})
	return response, nil
}

// UpdateTicket applies field edits gated by the capability table.
func (o *Orchestrator) UpdateTicket(ctx context.Context, actor domain.Principal, ticketID int64, input UpdateTicketInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	var oldStatus domain.TicketStatus
	err := o.tx.InTx(ctx, func(store *repository.Store) error {
		loaded, caps, err := o.loadWithCapabilities(ctx, store, actor, ticketID)
		if err != nil {
			return err
		}
		ticket = loaded
		oldStatus = ticket.Status
		if !caps.Modify {
			return apperrors.NewForbidden("not allowed to modify this ticket")
		}

		staffOnly := input.Description != nil || input.Status != nil ||
			input.Priority != nil || input.CategoryID != nil
		if staffOnly && !actor.Role.IsStaff() {
			return apperrors.NewForbidden("field reserved for staff")
		}

		if input.Subject != nil {
			subject := strings.TrimSpace(*input.Subject)
			if subject == "" {
				return apperrors.NewValidationError("subject cannot be empty", map[string]any{"subject": "required"})
			}
			ticket.Subject = subject
		}
		if input.Description != nil {
			description := strings.TrimSpace(*input.Description)
			if description == "" {
				return apperrors.NewValidationError("description cannot be empty", map[string]any{"description": "required"})
			}
			ticket.Description = description
		}
		if input.CategoryID != nil && *input.CategoryID != ticket.CategoryID {
			category, err := o.categories.GetByID(ctx, *input.CategoryID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewValidationError("unknown category", map[string]any{"category_id": "unknown"})
				}
				return apperrors.MapError(err)
			}
			if !category.Active {
				return apperrors.NewValidationError("category inactive", map[string]any{"category_id": "inactive"})
			}
			ticket.CategoryID = category.ID
		}
		if input.Priority != nil && *input.Priority != ticket.Priority {
			if ticket.CrisisFlag {
				return apperrors.NewStateConflict("crisis tickets keep urgent priority", nil)
			}
			ticket.Priority = *input.Priority
			ticket.PriorityScore = triage.PriorityScore(ticket.Priority, ticket.CrisisFlag)
		}
		if input.Status != nil {
			if isReopen(ticket.Status, *input.Status) && !actor.Role.IsStaff() {
				return apperrors.NewForbidden("only staff may reopen tickets")
			}
			if err := applyStatus(ticket, *input.Status, time.Now()); err != nil {
				return err
			}
		}
		if err := store.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ticket.Status != oldStatus {
		o.publish(ctx, actor, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	return ticket, nil
}

// AssignTicket manually sets or clears the assignee. Admin-only; validation
// of the target happens before any mutation.
func (o *Orchestrator) AssignTicket(ctx context.Context, actor domain.Principal, ticketID int64, input AssignTicketInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := o.tx.InTx(ctx, func(store *repository.Store) error {
		loaded, caps, err := o.loadWithCapabilities(ctx, store, actor, ticketID)
		if err != nil {
			return err
		}
		ticket = loaded
		if !caps.Assign {
			return apperrors.NewForbidden("not allowed to assign this ticket")
		}

		if input.AssigneeID != nil {
			target, err := store.Staff.GetByID(ctx, *input.AssigneeID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewNotFound("assignee", map[string]any{"assignee_id": *input.AssigneeID})
				}
				return apperrors.MapError(err)
			}
			category, err := o.categories.GetByID(ctx, ticket.CategoryID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if err := o.engine.ValidateManualTarget(target, category); err != nil {
				return err
			}
			now := time.Now()
			ticket.AssignedTo = &target.ID
			ticket.AssignedAt = &now
			ticket.AutoAssigned = domain.AssignmentModeManual
			ticket.AssignmentReason = strings.TrimSpace(input.Reason)
			ticket.Status = domain.TicketStatusInProgress
		} else {
			ticket.AssignedTo = nil
			ticket.AssignedAt = nil
			ticket.AutoAssigned = domain.AssignmentModeNone
			ticket.AssignmentReason = strings.TrimSpace(input.Reason)
			ticket.Status = domain.TicketStatusOpen
		}
		if err := store.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.publish(ctx, actor, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Payload: events.TicketAssignedPayload{
			AssigneeID:   ticket.AssignedTo,
			OwnerID:      ticket.OwnerID,
			TicketNumber: ticket.TicketNumber,
			Mode:         ticket.AutoAssigned,
			Reason:       ticket.AssignmentReason,
			CrisisFlag:   ticket.CrisisFlag,
		},
	})
	return ticket, nil
}

// ManageTags mutates the tag set; idempotent per action semantics.
func (o *Orchestrator) ManageTags(ctx context.Context, actor domain.Principal, ticketID int64, action TagAction, tags []string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := o.tx.InTx(ctx, func(store *repository.Store) error {
		loaded, caps, err := o.loadWithCapabilities(ctx, store, actor, ticketID)
		if err != nil {
			return err
		}
		ticket = loaded
		if !caps.ManageTags {
			return apperrors.NewForbidden("not allowed to manage tags on this ticket")
		}
		updated, err := applyTags(ticket.Tags, action, tags)
		if err != nil {
			return err
		}
		ticket.Tags = updated
		if err := store.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// DeleteTicket hard-deletes a ticket with its responses and attachments.
// Attachment bytes are swept from every tier after the row delete commits.
func (o *Orchestrator) DeleteTicket(ctx context.Context, actor domain.Principal, ticketID int64, reason string) error {
	var ticket *domain.Ticket
	var paths []string
	err := o.tx.InTx(ctx, func(store *repository.Store) error {
		loaded, caps, err := o.loadWithCapabilities(ctx, store, actor, ticketID)
		if err != nil {
			return err
		}
		ticket = loaded
		if !caps.Delete {
			return apperrors.NewForbidden("not allowed to delete this ticket")
		}
		attachments, err := store.Attachments.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		for _, attachment := range attachments {
			paths = append(paths, attachment.StoragePath)
		}
		// Response and attachment rows cascade from the ticket row.
		if err := store.Tickets.Delete(ctx, ticket.ID); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, path := range paths {
		o.gateway.Remove(ctx, path)
	}
	o.publish(ctx, actor, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Payload: events.TicketDeletedPayload{
			TicketNumber: ticket.TicketNumber,
			OwnerID:      ticket.OwnerID,
			Reason:       reason,
		},
	})
	return nil
}

// GetTicket loads a ticket with the responses and attachments visible to
// the caller.
func (o *Orchestrator) GetTicket(ctx context.Context, actor domain.Principal, ticketID int64) (*TicketThread, error) {
	ticket, caps, err := o.loadWithCapabilities(ctx, o.reads, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !caps.View {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	responses, err := o.reads.Responses.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	visible := filterResponses(actor, responses)
	orderResponses(actor, visible)
	attachments, err := o.reads.Attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketThread{Ticket: ticket, Responses: visible, Attachments: attachments}, nil
}

// ListResponses returns the thread messages visible to the caller, in the
// caller's reading order.
func (o *Orchestrator) ListResponses(ctx context.Context, actor domain.Principal, ticketID int64) ([]domain.TicketResponse, error) {
	ticket, caps, err := o.loadWithCapabilities(ctx, o.reads, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !caps.View {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	responses, err := o.reads.Responses.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	visible := filterResponses(actor, responses)
	orderResponses(actor, visible)
	return visible, nil
}

// ListTickets returns tickets scoped to the caller: students see their own,
// non-admin staff default to their assigned queue, admins see everything.
func (o *Orchestrator) ListTickets(ctx context.Context, actor domain.Principal, filter repository.TicketFilter) ([]domain.Ticket, error) {
	switch {
	case actor.Role == domain.RoleAdmin:
	case actor.Role.IsStaff():
		if filter.AssignedTo == nil {
			id := actor.ID
			filter.AssignedTo = &id
		}
	default:
		id := actor.ID
		filter.OwnerID = &id
	}
	tickets, err := o.reads.Tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// DownloadAttachment resolves attachment bytes through the tier fallback,
// after the same visibility checks as the surrounding thread.
func (o *Orchestrator) DownloadAttachment(ctx context.Context, actor domain.Principal, attachmentID int64) (*domain.TicketAttachment, []byte, error) {
	attachment, err := o.reads.Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	_, caps, err := o.loadWithCapabilities(ctx, o.reads, actor, attachment.TicketID)
	if err != nil {
		return nil, nil, err
	}
	if !caps.View {
		return nil, nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	if attachment.ResponseID != nil {
		response, err := o.reads.Responses.GetByID(ctx, *attachment.ResponseID)
		if err != nil {
			return nil, nil, apperrors.MapError(err)
		}
		if !response.VisibleTo(actor) {
			// Hidden responses hide their attachments entirely.
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
	}
	data, err := o.gateway.Resolve(ctx, attachment.StorageTier, attachment.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return attachment, data, nil
}

func (o *Orchestrator) loadWithCapabilities(ctx context.Context, store *repository.Store, actor domain.Principal, ticketID int64) (*domain.Ticket, triage.Capabilities, error) {
	ticket, err := store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, triage.None, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, triage.None, apperrors.MapError(err)
	}
	caps := triage.Evaluate(actor, ticket, o.eligibleRolesFor(ctx, ticket.CategoryID))
	return ticket, caps, nil
}

func (o *Orchestrator) eligibleRolesFor(ctx context.Context, categoryID int64) []domain.Role {
	category, err := o.categories.GetByID(ctx, categoryID)
	if err != nil {
		o.logger.Warn("category lookup failed during access evaluation",
			zap.Int64("category_id", categoryID), zap.Error(err))
		return o.engine.EligibleRoles(nil)
	}
	return o.engine.EligibleRoles(category)
}

// storeFiles writes attachment bytes through the gateway and persists
// metadata. Byte writes are not covered by the SQL transaction; when a
// metadata insert fails the gateway sweeps the orphaned object from every
// tier.
func (o *Orchestrator) storeFiles(ctx context.Context, store *repository.Store, ticket *domain.Ticket, responseID *int64, uploaderID int64, files []FileUpload) error {
	for _, file := range files {
		if len(file.Data) == 0 {
			return apperrors.NewValidationError("empty attachment", map[string]any{"file": file.FileName})
		}
		path := attachmentPath(ticket.ID, file.FileName)
		tier, err := o.gateway.Store(ctx, path, file.Data, file.MimeType)
		if err != nil {
			return err
		}
		attachment := &domain.TicketAttachment{
			TicketID:    ticket.ID,
			ResponseID:  responseID,
			FileName:    file.FileName,
			StoragePath: path,
			StorageTier: tier,
			MimeType:    file.MimeType,
			SizeBytes:   int64(len(file.Data)),
			UploadedBy:  uploaderID,
		}
		if err := store.Attachments.Create(ctx, attachment); err != nil {
			o.gateway.Remove(ctx, path)
			return apperrors.MapError(err)
		}
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, actor domain.Principal, event events.Event) {
	if o.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.ActorID = actor.ID
	event.ActorRole = actor.Role
	_ = o.dispatcher.Publish(ctx, event)
}

func filterResponses(actor domain.Principal, responses []domain.TicketResponse) []domain.TicketResponse {
	visible := make([]domain.TicketResponse, 0, len(responses))
	for _, response := range responses {
		if response.VisibleTo(actor) {
			visible = append(visible, response)
		}
	}
	return visible
}

// orderResponses keeps the thread chronological for admins and students;
// staff without elevated clearance read public replies before internal
// notes, each block chronological.
func orderResponses(actor domain.Principal, responses []domain.TicketResponse) {
	if actor.Role == domain.RoleAdmin || !actor.Role.IsStaff() {
		return
	}
	sort.SliceStable(responses, func(i, j int) bool {
		if responses[i].IsInternal != responses[j].IsInternal {
			return !responses[i].IsInternal
		}
		return responses[i].CreatedAt.Before(responses[j].CreatedAt)
	})
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func attachmentPath(ticketID int64, fileName string) string {
	ext := filepath.Ext(fileName)
	return fmt.Sprintf("tickets/%d/%s%s", ticketID, uuid.NewString(), ext)
}
