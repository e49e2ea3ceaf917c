package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campuscare/triage-service/internal/api/dto"
	"github.com/campuscare/triage-service/internal/auth"
	"github.com/campuscare/triage-service/internal/domain"
	"github.com/campuscare/triage-service/internal/repository"
	"github.com/campuscare/triage-service/internal/service"
	apperrors "github.com/campuscare/triage-service/pkg/util"
)

// UploadPolicy bounds inbound attachments.
type UploadPolicy struct {
	MaxBytes          int64
	AllowedMimePrefix []string
}

// TicketsHandler exposes the ticket operations over HTTP.
type TicketsHandler struct {
	orchestrator *service.Orchestrator
	uploads      UploadPolicy
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(orchestrator *service.Orchestrator, uploads UploadPolicy) *TicketsHandler {
	return &TicketsHandler{orchestrator: orchestrator, uploads: uploads}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	files, err := h.collectFiles(c)
	if err != nil {
		return err
	}

	ticket, err := h.orchestrator.CreateTicket(c.UserContext(), principal, service.CreateTicketInput{
		OwnerID:     req.OwnerID,
		Subject:     req.Subject,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Priority:    req.Priority,
		Files:       files,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.orchestrator.ListTickets(c.UserContext(), principal, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	thread, err := h.orchestrator.GetTicket(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(thread)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.orchestrator.UpdateTicket(c.UserContext(), principal, id, service.UpdateTicketInput{
		Subject:     req.Subject,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.orchestrator.AssignTicket(c.UserContext(), principal, id, service.AssignTicketInput{
		AssigneeID: req.AssigneeID,
		Reason:     req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ManageTags POST /tickets/:id/tags.
func (h *TicketsHandler) ManageTags(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ManageTagsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.orchestrator.ManageTags(c.UserContext(), principal, id, service.TagAction(req.Action), req.Tags)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.DeleteTicketRequest
	// Body is optional on delete.
	_ = c.BodyParser(&req)
	if err := h.orchestrator.DeleteTicket(c.UserContext(), principal, id, req.Reason); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddResponse POST /tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AddResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	files, err := h.collectFiles(c)
	if err != nil {
		return err
	}
	response, err := h.orchestrator.AddResponse(c.UserContext(), principal, id, service.AddResponseInput{
		Message:    req.Message,
		IsInternal: req.IsInternal,
		Visibility: req.Visibility,
		IsUrgent:   req.IsUrgent,
		Files:      files,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": responseDTO(response)})
}

// ListResponses GET /tickets/:id/responses.
func (h *TicketsHandler) ListResponses(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	responses, err := h.orchestrator.ListResponses(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	items := make([]dto.ResponseDTO, 0, len(responses))
	for i := range responses {
		items = append(items, responseDTO(&responses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DownloadAttachment GET /attachments/:id.
func (h *TicketsHandler) DownloadAttachment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	attachment, data, err := h.orchestrator.DownloadAttachment(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, attachment.MimeType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+attachment.FileName+`"`)
	return c.Send(data)
}

func (h *TicketsHandler) collectFiles(c *fiber.Ctx) ([]service.FileUpload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart form", nil)
	}
	headers := form.File["files"]
	files := make([]service.FileUpload, 0, len(headers))
	for _, header := range headers {
		if header.Size > h.uploads.MaxBytes {
			return nil, apperrors.NewValidationError("attachment too large", map[string]any{
				"file":      header.Filename,
				"max_bytes": h.uploads.MaxBytes,
			})
		}
		mimeType := header.Header.Get("Content-Type")
		if !h.mimeAllowed(mimeType) {
			return nil, apperrors.NewValidationError("attachment type not allowed", map[string]any{
				"file":      header.Filename,
				"mime_type": mimeType,
			})
		}
		data, err := readFile(header)
		if err != nil {
			return nil, apperrors.NewValidationError("unreadable attachment", map[string]any{"file": header.Filename})
		}
		files = append(files, service.FileUpload{
			FileName: header.Filename,
			MimeType: mimeType,
			Data:     data,
		})
	}
	return files, nil
}

func (h *TicketsHandler) mimeAllowed(mimeType string) bool {
	if len(h.uploads.AllowedMimePrefix) == 0 {
		return true
	}
	for _, prefix := range h.uploads.AllowedMimePrefix {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if categoryStr := c.Query("category_id"); categoryStr != "" {
		if id, err := strconv.ParseInt(categoryStr, 10, 64); err == nil && id > 0 {
			filter.CategoryID = &id
		}
	}
	if assignedStr := c.Query("assigned_to"); assignedStr != "" {
		if id, err := strconv.ParseInt(assignedStr, 10, 64); err == nil && id > 0 {
			filter.AssignedTo = &id
		}
	}
	if c.QueryBool("crisis_only") {
		filter.CrisisOnly = true
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseIntDefault(c.Query("page"), 1)
	pageSize := parseIntDefault(c.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntDefault(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:               ticket.ID,
		TicketNumber:     ticket.TicketNumber,
		OwnerID:          ticket.OwnerID,
		AssignedTo:       ticket.AssignedTo,
		CategoryID:       ticket.CategoryID,
		Subject:          ticket.Subject,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		PriorityScore:    ticket.PriorityScore,
		CrisisFlag:       ticket.CrisisFlag,
		AutoAssigned:     ticket.AutoAssigned,
		AssignmentReason: ticket.AssignmentReason,
		Tags:             ticket.Tags,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}

func ticketDetail(thread *service.TicketThread) dto.TicketDetailResponse {
	responses := make([]dto.ResponseDTO, 0, len(thread.Responses))
	for i := range thread.Responses {
		responses = append(responses, responseDTO(&thread.Responses[i]))
	}
	attachments := make([]dto.AttachmentResponse, 0, len(thread.Attachments))
	for _, att := range thread.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:          att.ID,
			ResponseID:  att.ResponseID,
			FileName:    att.FileName,
			StorageTier: att.StorageTier,
			MimeType:    att.MimeType,
			SizeBytes:   att.SizeBytes,
			CreatedAt:   att.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(thread.Ticket),
		Description:   thread.Ticket.Description,
		AssignedAt:    thread.Ticket.AssignedAt,
		ResolvedAt:    thread.Ticket.ResolvedAt,
		ClosedAt:      thread.Ticket.ClosedAt,
		Responses:     responses,
		Attachments:   attachments,
	}
}

func responseDTO(response *domain.TicketResponse) dto.ResponseDTO {
	return dto.ResponseDTO{
		ID:         response.ID,
		AuthorID:   response.AuthorID,
		AuthorRole: response.AuthorRole,
		Message:    response.Message,
		IsInternal: response.IsInternal,
		Visibility: response.Visibility,
		IsUrgent:   response.IsUrgent,
		CreatedAt:  response.CreatedAt,
	}
}
