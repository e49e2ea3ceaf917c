package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuscare/triage-service/internal/assignment"
	"github.com/campuscare/triage-service/internal/domain"
	"github.com/campuscare/triage-service/internal/events"
	"github.com/campuscare/triage-service/internal/observability"
	"github.com/campuscare/triage-service/internal/repository"
	"github.com/campuscare/triage-service/internal/triage"
	apperrors "github.com/campuscare/triage-service/pkg/util"
)

// memState is the shared backing store for the in-memory repositories.
type memState struct {
	mu          sync.Mutex
	nextID      int64
	tickets     map[int64]*domain.Ticket
	responses   map[int64]*domain.TicketResponse
	attachments map[int64]*domain.TicketAttachment
	categories  map[int64]*domain.Category
	staff       map[int64]*domain.StaffMember

	failAttachmentCreate bool
}

func newMemState() *memState {
	return &memState{
		nextID:      1,
		tickets:     map[int64]*domain.Ticket{},
		responses:   map[int64]*domain.TicketResponse{},
		attachments: map[int64]*domain.TicketAttachment{},
		categories:  map[int64]*domain.Category{},
		staff:       map[int64]*domain.StaffMember{},
	}
}

func (s *memState) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

type memTicketRepo struct{ s *memState }

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = r.s.id()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ticket := range r.s.tickets {
		if ticket.TicketNumber == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.AssignedTo != nil && !ticket.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		if filter.CrisisOnly && !ticket.CrisisFlag {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *memTicketRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.tickets, id)
	for rid, response := range r.s.responses {
		if response.TicketID == id {
			delete(r.s.responses, rid)
		}
	}
	for aid, attachment := range r.s.attachments {
		if attachment.TicketID == id {
			delete(r.s.attachments, aid)
		}
	}
	return nil
}

type memResponseRepo struct{ s *memState }

func (r *memResponseRepo) Create(_ context.Context, response *domain.TicketResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	response.ID = r.s.id()
	response.CreatedAt = time.Now()
	copied := *response
	r.s.responses[response.ID] = &copied
	return nil
}

func (r *memResponseRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.TicketResponse
	for id := int64(0); id < r.s.nextID; id++ {
		if response, ok := r.s.responses[id]; ok && response.TicketID == ticketID {
			result = append(result, *response)
		}
	}
	return result, nil
}

func (r *memResponseRepo) GetByID(_ context.Context, id int64) (*domain.TicketResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	response, ok := r.s.responses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *response
	return &copied, nil
}

type memAttachmentRepo struct{ s *memState }

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.TicketAttachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAttachmentCreate {
		return errors.New("attachment insert failed")
	}
	attachment.ID = r.s.id()
	attachment.CreatedAt = time.Now()
	copied := *attachment
	r.s.attachments[attachment.ID] = &copied
	return nil
}

func (r *memAttachmentRepo) GetByID(_ context.Context, id int64) (*domain.TicketAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	attachment, ok := r.s.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *attachment
	return &copied, nil
}

func (r *memAttachmentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.TicketAttachment
	for _, attachment := range r.s.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, *attachment)
		}
	}
	return result, nil
}

func (r *memAttachmentRepo) ListByResponse(_ context.Context, responseID int64) ([]domain.TicketAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.TicketAttachment
	for _, attachment := range r.s.attachments {
		if attachment.ResponseID != nil && *attachment.ResponseID == responseID {
			result = append(result, *attachment)
		}
	}
	return result, nil
}

type memCategoryRepo struct{ s *memState }

func (r *memCategoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category, ok := r.s.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *category
	return &copied, nil
}

func (r *memCategoryRepo) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, category := range r.s.categories {
		if category.Slug == slug {
			copied := *category
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memCategoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Category
	for _, category := range r.s.categories {
		if category.Active {
			result = append(result, *category)
		}
	}
	return result, nil
}

type memStaffRepo struct{ s *memState }

func (r *memStaffRepo) GetByID(_ context.Context, id int64) (*domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	staff, ok := r.s.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (r *memStaffRepo) ListActiveByRoles(_ context.Context, roles []domain.Role) ([]domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.StaffMember
	for id := int64(0); id < 1000; id++ {
		staff, ok := r.s.staff[id]
		if !ok || staff.Status != domain.PrincipalStatusActive {
			continue
		}
		for _, role := range roles {
			if staff.Role == role {
				result = append(result, *staff)
				break
			}
		}
	}
	return result, nil
}

func (r *memStaffRepo) ListActiveWithWorkload(ctx context.Context, roles []domain.Role) ([]repository.StaffWorkload, error) {
	eligible, err := r.ListActiveByRoles(ctx, roles)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]repository.StaffWorkload, 0, len(eligible))
	for _, staff := range eligible {
		open := 0
		for _, ticket := range r.s.tickets {
			if ticket.IsAssignedTo(staff.ID) &&
				(ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusInProgress) {
				open++
			}
		}
		result = append(result, repository.StaffWorkload{Staff: staff, OpenTickets: open})
	}
	// Ordering matches the SQL: workload ascending, id ascending.
	for i := 1; i < len(result); i++ {
		for j := i; j > 0; j-- {
			a, b := result[j-1], result[j]
			if b.OpenTickets < a.OpenTickets || (b.OpenTickets == a.OpenTickets && b.Staff.ID < a.Staff.ID) {
				result[j-1], result[j] = b, a
			}
		}
	}
	return result, nil
}

// passthroughTx hands the same in-memory store to every unit of work.
type passthroughTx struct{ store *repository.Store }

func (t *passthroughTx) InTx(_ context.Context, fn func(store *repository.Store) error) error {
	return fn(t.store)
}

// fakeGateway mimics the ordered tier fallback.
type fakeGateway struct {
	mu        sync.Mutex
	tierOrder []string
	failTiers map[string]bool
	objects   map[string][]byte
	tierOf    map[string]string
	removed   []string
}

func newFakeGateway(tiers ...string) *fakeGateway {
	return &fakeGateway{
		tierOrder: tiers,
		failTiers: map[string]bool{},
		objects:   map[string][]byte{},
		tierOf:    map[string]string{},
	}
}

func (g *fakeGateway) Store(_ context.Context, path string, data []byte, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, tier := range g.tierOrder {
		if g.failTiers[tier] {
			continue
		}
		g.objects[path] = data
		g.tierOf[path] = tier
		return tier, nil
	}
	return "", apperrors.NewStorageFailure("all attachment tiers rejected write", nil)
}

func (g *fakeGateway) Resolve(_ context.Context, _, path string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.objects[path]
	if !ok {
		return nil, apperrors.NewNotFound("attachment bytes", map[string]any{"path": path})
	}
	return data, nil
}

func (g *fakeGateway) Remove(_ context.Context, path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.objects, path)
	delete(g.tierOf, path)
	g.removed = append(g.removed, path)
}

// captureSink records notification intents.
type captureSink struct {
	mu      sync.Mutex
	intents []Intent
}

func (s *captureSink) Enqueue(_ context.Context, intent Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, intent)
	return nil
}

func (s *captureSink) byTitlePrefix(prefix string) []Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Intent
	for _, intent := range s.intents {
		if len(intent.Title) >= len(prefix) && intent.Title[:len(prefix)] == prefix {
			out = append(out, intent)
		}
	}
	return out
}

type harness struct {
	state        *memState
	store        *repository.Store
	gateway      *fakeGateway
	sink         *captureSink
	metrics      *observability.Metrics
	orchestrator *Orchestrator
}

const (
	academicCategoryID = int64(300)
	crisisCategoryID   = int64(301)
	counselorAID       = int64(500)
	counselorBID       = int64(501)
	adminID            = int64(502)
	studentID          = int64(700)
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	state := newMemState()
	state.categories[academicCategoryID] = &domain.Category{
		ID: academicCategoryID, Slug: "academic", Name: "Academic Advising",
		EligibleRoles: []domain.Role{domain.RoleCounselor}, Active: true,
	}
	state.categories[crisisCategoryID] = &domain.Category{
		ID: crisisCategoryID, Slug: "crisis", Name: "Crisis Support",
		EligibleRoles: []domain.Role{domain.RoleCounselor, domain.RoleAdmin}, Active: true,
	}
	state.staff[counselorAID] = &domain.StaffMember{ID: counselorAID, Name: "A", Role: domain.RoleCounselor, Status: domain.PrincipalStatusActive}
	state.staff[counselorBID] = &domain.StaffMember{ID: counselorBID, Name: "B", Role: domain.RoleCounselor, Status: domain.PrincipalStatusActive}
	state.staff[adminID] = &domain.StaffMember{ID: adminID, Name: "Root", Role: domain.RoleAdmin, Status: domain.PrincipalStatusActive}

	store := &repository.Store{
		Tickets:     &memTicketRepo{s: state},
		Responses:   &memResponseRepo{s: state},
		Attachments: &memAttachmentRepo{s: state},
		Categories:  &memCategoryRepo{s: state},
		Staff:       &memStaffRepo{s: state},
	}
	gateway := newFakeGateway("minio-public", "minio-restricted", "local-disk")
	sink := &captureSink{}
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(sink, store.Staff, zap.NewNop()).Register(dispatcher)

	orchestrator := NewOrchestrator(OrchestratorDependencies{
		Tx:             &passthroughTx{store: store},
		Reads:          store,
		Categories:     store.Categories,
		Gateway:        gateway,
		Detector:       triage.NewCrisisDetector([]string{"suicide", "end my life", "self harm"}),
		Engine:         assignment.NewEngine(domain.RoleCounselor, zap.NewNop()),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         zap.NewNop(),
		CrisisCategory: "crisis",
	})
	return &harness{state: state, store: store, gateway: gateway, sink: sink, metrics: metrics, orchestrator: orchestrator}
}

func student() domain.Principal {
	return domain.Principal{ID: studentID, Role: domain.RoleStudent, Status: domain.PrincipalStatusActive}
}

func counselorA() domain.Principal {
	return domain.Principal{ID: counselorAID, Role: domain.RoleCounselor, Status: domain.PrincipalStatusActive}
}

func admin() domain.Principal {
	return domain.Principal{ID: adminID, Role: domain.RoleAdmin, Status: domain.PrincipalStatusActive}
}

func TestCreateTicketCrisisEscalation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ticket, err := h.orchestrator.CreateTicket(ctx, student(), CreateTicketInput{
		Subject:     "Feeling hopeless",
		Description: "I want to end my life, nothing is working",
		CategoryID:  academicCategoryID,
		Priority:    domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	assert.True(t, ticket.CrisisFlag)
	assert.Equal(t, []string{"end my life"}, ticket.CrisisKeywords)
	assert.Equal(t, crisisCategoryID, ticket.CategoryID)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	assert.Equal(t, 65.0, ticket.PriorityScore)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, ticket.TicketNumber)

	// Least-loaded counselor wins the tie by lower id.
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, counselorAID, *ticket.AssignedTo)
	assert.Equal(t, domain.AssignmentModeAuto, ticket.AutoAssigned)
	assert.NotNil(t, ticket.AssignedAt)

	// One admin gets the creation intent and the crisis alert; the assignee
	// and the owner hear about the assignment.
	assert.Len(t, h.sink.byTitlePrefix("New ticket"), 1)
	crisisAlerts := h.sink.byTitlePrefix("Crisis alert")
	require.Len(t, crisisAlerts, 1)
	assert.Equal(t, adminID, crisisAlerts[0].RecipientID)
	assert.Equal(t, string(domain.TicketPriorityUrgent), crisisAlerts[0].Priority)
	assert.Len(t, h.sink.byTitlePrefix("Ticket assigned"), 1)
	assert.Len(t, h.sink.byTitlePrefix("Your ticket"), 1)
}

func TestCreateTicketNoCrisisKeepsClassification(t *testing.T) {
	h := newHarness(t)

	ticket, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:     "Cannot enroll",
		Description: "Registration portal rejects my enrollment request",
		CategoryID:  academicCategoryID,
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	assert.False(t, ticket.CrisisFlag)
	assert.Equal(t, academicCategoryID, ticket.CategoryID)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Empty(t, h.sink.byTitlePrefix("Crisis alert"))
}

func TestCreateTicketRoutingFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	for _, staff := range h.state.staff {
		if staff.Role == domain.RoleCounselor {
			staff.Status = domain.PrincipalStatusSuspended
		}
	}

	ticket, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:     "Question",
		Description: "Who do I talk to about housing",
		CategoryID:  academicCategoryID,
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.AssignedTo)
	assert.Equal(t, domain.AssignmentModeNone, ticket.AutoAssigned)
	assert.Equal(t, int64(1), h.metrics.RoutingFailures())
}

func TestCreateTicketValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:    "  ",
		CategoryID: academicCategoryID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:     "x",
		Description: "y",
		CategoryID:  9999,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateTicketStudentCannotFileForOthers(t *testing.T) {
	h := newHarness(t)
	_, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		OwnerID:     999,
		Subject:     "x",
		Description: "y",
		CategoryID:  academicCategoryID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestAttachmentTierFallbackAndRecordedTier(t *testing.T) {
	h := newHarness(t)
	h.gateway.failTiers["minio-public"] = true

	ticket, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:     "With file",
		Description: "see attached form",
		CategoryID:  academicCategoryID,
		Files: []FileUpload{
			{FileName: "form.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4")},
		},
	})
	require.NoError(t, err)

	attachments, err := h.store.Attachments.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "minio-restricted", attachments[0].StorageTier)
	assert.Equal(t, int64(8), attachments[0].SizeBytes)

	meta, data, err := h.orchestrator.DownloadAttachment(context.Background(), student(), attachments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "form.pdf", meta.FileName)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestAttachmentMetadataFailureSweepsOrphan(t *testing.T) {
	h := newHarness(t)
	h.state.failAttachmentCreate = true

	_, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:     "With file",
		Description: "see attached",
		CategoryID:  academicCategoryID,
		Files: []FileUpload{
			{FileName: "a.txt", MimeType: "text/plain", Data: []byte("x")},
		},
	})
	require.Error(t, err)
	require.Len(t, h.gateway.removed, 1)
	assert.Empty(t, h.gateway.objects)
}

func TestAddResponseStudentInternalRejected(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "need advice", "how do I switch majors")

	_, err := h.orchestrator.AddResponse(context.Background(), student(), ticket.ID, AddResponseInput{
		Message:    "note to self",
		IsInternal: true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	assert.Empty(t, h.state.responses)
}

func TestAddResponseFirstStaffReplyStartsProgress(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "need advice", "how do I switch majors")
	require.Equal(t, domain.TicketStatusOpen, ticket.Status)

	response, err := h.orchestrator.AddResponse(context.Background(), counselorA(), ticket.ID, AddResponseInput{
		Message: "let's schedule a meeting",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityAll, response.Visibility)

	updated, err := h.store.Tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	// Student reply afterwards does not bounce the status.
	_, err = h.orchestrator.AddResponse(context.Background(), student(), ticket.ID, AddResponseInput{
		Message: "thanks",
	})
	require.NoError(t, err)
	updated, err = h.store.Tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestUpdateTicketFieldGates(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "original subject", "plain description")
	ctx := context.Background()

	t.Run("owner may edit subject", func(t *testing.T) {
		subject := "clearer subject"
		updated, err := h.orchestrator.UpdateTicket(ctx, student(), ticket.ID, UpdateTicketInput{Subject: &subject})
		require.NoError(t, err)
		assert.Equal(t, "clearer subject", updated.Subject)
	})

	t.Run("owner may not change priority", func(t *testing.T) {
		priority := domain.TicketPriorityUrgent
		_, err := h.orchestrator.UpdateTicket(ctx, student(), ticket.ID, UpdateTicketInput{Priority: &priority})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("assigned staff may change priority", func(t *testing.T) {
		priority := domain.TicketPriorityHigh
		updated, err := h.orchestrator.UpdateTicket(ctx, counselorA(), ticket.ID, UpdateTicketInput{Priority: &priority})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
		assert.Equal(t, 30.0, updated.PriorityScore)
	})

	t.Run("invalid transition conflicts", func(t *testing.T) {
		resolved := domain.TicketStatusResolved
		_, err := h.orchestrator.UpdateTicket(ctx, counselorA(), ticket.ID, UpdateTicketInput{Status: &resolved})
		require.NoError(t, err)

		bad := domain.TicketStatusOpen
		_, err = h.orchestrator.UpdateTicket(ctx, counselorA(), ticket.ID, UpdateTicketInput{Status: &bad})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "STATE_CONFLICT"))
	})
}

func TestUpdateTicketCrisisPriorityPinned(t *testing.T) {
	h := newHarness(t)
	ticket, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:     "Feeling hopeless",
		Description: "thoughts of self harm lately",
		CategoryID:  academicCategoryID,
	})
	require.NoError(t, err)
	require.True(t, ticket.CrisisFlag)

	priority := domain.TicketPriorityLow
	_, err = h.orchestrator.UpdateTicket(context.Background(), admin(), ticket.ID, UpdateTicketInput{Priority: &priority})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "STATE_CONFLICT"))
}

func TestAssignTicketManual(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "subject", "description")
	ctx := context.Background()

	target := int64(counselorBID)

	t.Run("staff cannot assign", func(t *testing.T) {
		_, err := h.orchestrator.AssignTicket(ctx, counselorA(), ticket.ID, AssignTicketInput{AssigneeID: &target})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("admin reassigns", func(t *testing.T) {
		updated, err := h.orchestrator.AssignTicket(ctx, admin(), ticket.ID, AssignTicketInput{
			AssigneeID: &target,
			Reason:     "caseload balancing",
		})
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedTo)
		assert.Equal(t, counselorBID, *updated.AssignedTo)
		assert.Equal(t, domain.AssignmentModeManual, updated.AutoAssigned)
		assert.Equal(t, "caseload balancing", updated.AssignmentReason)
		assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	})

	t.Run("admin clears assignment", func(t *testing.T) {
		updated, err := h.orchestrator.AssignTicket(ctx, admin(), ticket.ID, AssignTicketInput{Reason: "returning to queue"})
		require.NoError(t, err)
		assert.Nil(t, updated.AssignedTo)
		assert.Nil(t, updated.AssignedAt)
		assert.Equal(t, domain.AssignmentModeNone, updated.AutoAssigned)
		assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		bogus := int64(9999)
		_, err := h.orchestrator.AssignTicket(ctx, admin(), ticket.ID, AssignTicketInput{AssigneeID: &bogus})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	})
}

func TestGetTicketHidesInternalFromStudent(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "subject", "description")
	ctx := context.Background()

	_, err := h.orchestrator.AddResponse(ctx, counselorA(), ticket.ID, AddResponseInput{Message: "public reply"})
	require.NoError(t, err)
	_, err = h.orchestrator.AddResponse(ctx, counselorA(), ticket.ID, AddResponseInput{
		Message:    "internal note",
		IsInternal: true,
	})
	require.NoError(t, err)

	thread, err := h.orchestrator.GetTicket(ctx, student(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread.Responses, 1)
	assert.Equal(t, "public reply", thread.Responses[0].Message)

	asStaff, err := h.orchestrator.GetTicket(ctx, counselorA(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, asStaff.Responses, 2)
}

func TestListResponsesOrdering(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "subject", "description")
	ctx := context.Background()

	_, err := h.orchestrator.AddResponse(ctx, counselorA(), ticket.ID, AddResponseInput{
		Message: "internal first", IsInternal: true,
	})
	require.NoError(t, err)
	_, err = h.orchestrator.AddResponse(ctx, counselorA(), ticket.ID, AddResponseInput{
		Message: "public second",
	})
	require.NoError(t, err)

	t.Run("counselor reads public replies before internal notes", func(t *testing.T) {
		responses, err := h.orchestrator.ListResponses(ctx, counselorA(), ticket.ID)
		require.NoError(t, err)
		require.Len(t, responses, 2)
		assert.Equal(t, "public second", responses[0].Message)
		assert.Equal(t, "internal first", responses[1].Message)
	})

	t.Run("admin reads chronologically", func(t *testing.T) {
		responses, err := h.orchestrator.ListResponses(ctx, admin(), ticket.ID)
		require.NoError(t, err)
		require.Len(t, responses, 2)
		assert.Equal(t, "internal first", responses[0].Message)
	})

	t.Run("student sees only the public reply", func(t *testing.T) {
		responses, err := h.orchestrator.ListResponses(ctx, student(), ticket.ID)
		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.Equal(t, "public second", responses[0].Message)
	})
}

func TestDownloadAttachmentOnInternalResponseHiddenFromStudent(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "subject", "description")
	ctx := context.Background()

	_, err := h.orchestrator.AddResponse(ctx, counselorA(), ticket.ID, AddResponseInput{
		Message:    "internal evidence",
		IsInternal: true,
		Files: []FileUpload{
			{FileName: "notes.txt", MimeType: "text/plain", Data: []byte("private")},
		},
	})
	require.NoError(t, err)

	var attachmentID int64
	for id := range h.state.attachments {
		attachmentID = id
	}
	_, _, err = h.orchestrator.DownloadAttachment(ctx, student(), attachmentID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, data, err := h.orchestrator.DownloadAttachment(ctx, counselorA(), attachmentID)
	require.NoError(t, err)
	assert.Equal(t, []byte("private"), data)
}

func TestDeleteTicketCascadesAndSweepsTiers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gateway.failTiers["minio-public"] = true
	ticket, err := h.orchestrator.CreateTicket(ctx, student(), CreateTicketInput{
		Subject:     "with files",
		Description: "two attachments",
		CategoryID:  academicCategoryID,
		Files: []FileUpload{
			{FileName: "a.txt", MimeType: "text/plain", Data: []byte("a")},
		},
	})
	require.NoError(t, err)
	h.gateway.failTiers["minio-public"] = false
	_, err = h.orchestrator.AddResponse(ctx, counselorA(), ticket.ID, AddResponseInput{
		Message: "adding one more",
		Files: []FileUpload{
			{FileName: "b.txt", MimeType: "text/plain", Data: []byte("b")},
		},
	})
	require.NoError(t, err)

	t.Run("student cannot delete", func(t *testing.T) {
		err := h.orchestrator.DeleteTicket(ctx, student(), ticket.ID, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	require.NoError(t, h.orchestrator.DeleteTicket(ctx, admin(), ticket.ID, "test data purge"))

	assert.Empty(t, h.state.tickets)
	assert.Empty(t, h.state.responses)
	assert.Empty(t, h.state.attachments)
	assert.Empty(t, h.gateway.objects)
	assert.Len(t, h.gateway.removed, 2)

	_, err = h.orchestrator.GetTicket(ctx, admin(), ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListTicketsScopes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := mustCreate(t, h, "mine", "belongs to the student")
	other, err := h.orchestrator.CreateTicket(ctx, domain.Principal{ID: 701, Role: domain.RoleStudent, Status: domain.PrincipalStatusActive},
		CreateTicketInput{Subject: "other", Description: "someone else", CategoryID: academicCategoryID})
	require.NoError(t, err)

	t.Run("student sees only own", func(t *testing.T) {
		tickets, err := h.orchestrator.ListTickets(ctx, student(), repository.TicketFilter{})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, mine.ID, tickets[0].ID)
	})

	t.Run("staff defaults to assigned queue", func(t *testing.T) {
		tickets, err := h.orchestrator.ListTickets(ctx, counselorA(), repository.TicketFilter{})
		require.NoError(t, err)
		// Round-robin by workload: first ticket went to A, second to B.
		require.Len(t, tickets, 1)
		assert.Equal(t, mine.ID, tickets[0].ID)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		tickets, err := h.orchestrator.ListTickets(ctx, admin(), repository.TicketFilter{})
		require.NoError(t, err)
		assert.Len(t, tickets, 2)
	})

	_ = other
}

func TestManageTagsRequiresCapability(t *testing.T) {
	h := newHarness(t)
	ticket := mustCreate(t, h, "subject", "description")
	ctx := context.Background()

	_, err := h.orchestrator.ManageTags(ctx, student(), ticket.ID, TagActionAdd, []string{"follow-up"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	updated, err := h.orchestrator.ManageTags(ctx, counselorA(), ticket.ID, TagActionAdd, []string{"follow-up", "housing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"follow-up", "housing"}, updated.Tags)

	updated, err = h.orchestrator.ManageTags(ctx, counselorA(), ticket.ID, TagActionRemove, []string{"housing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"follow-up"}, updated.Tags)
}

// mustCreate files a plain non-crisis ticket owned by the default student;
// auto-assignment routes it to the least-loaded counselor.
func mustCreate(t *testing.T, h *harness, subject, description string) *domain.Ticket {
	t.Helper()
	ticket, err := h.orchestrator.CreateTicket(context.Background(), student(), CreateTicketInput{
		Subject:     subject,
		Description: description,
		CategoryID:  academicCategoryID,
	})
	require.NoError(t, err)
	return ticket
}
