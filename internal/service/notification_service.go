package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuscare/triage-service/internal/domain"
	"github.com/campuscare/triage-service/internal/events"
	"github.com/campuscare/triage-service/internal/repository"
)

// Intent is a queued notification request. Delivery channels live outside
// this service; the engine only records who should hear about what.
type Intent struct {
	RecipientID int64          `json:"recipient_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Priority    string         `json:"priority"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// IntentSink accepts notification intents for downstream delivery.
type IntentSink interface {
	Enqueue(ctx context.Context, intent Intent) error
}

// RedisIntentSink pushes intents onto a Redis list consumed by the
// delivery worker.
type RedisIntentSink struct {
	client   *redis.Client
	queueKey string
}

// NewRedisIntentSink builds the sink.
func NewRedisIntentSink(client *redis.Client, queueKey string) *RedisIntentSink {
	return &RedisIntentSink{client: client, queueKey: queueKey}
}

// Enqueue serializes the intent and LPUSHes it onto the queue.
func (s *RedisIntentSink) Enqueue(ctx context.Context, intent Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return s.client.LPush(ctx, s.queueKey, data).Err()
}

// NotificationService turns domain events into notification intents.
// Failures are logged and dropped; notifications never fail a ticket
// operation.
type NotificationService struct {
	sink   IntentSink
	staff  repository.StaffRepository
	logger *zap.Logger
}

// NewNotificationService builds the service.
func NewNotificationService(sink IntentSink, staff repository.StaffRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{sink: sink, staff: staff, logger: logger}
}

// Register subscribes the service to the dispatcher.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.onTicketCreated)
	dispatcher.Subscribe(events.EventCrisisDetected, s.onCrisisDetected)
	dispatcher.Subscribe(events.EventTicketAssigned, s.onTicketAssigned)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventResponseAdded, s.onResponseAdded)
}

func (s *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	admins, err := s.staff.ListActiveByRoles(ctx, []domain.Role{domain.RoleAdmin})
	if err != nil {
		s.logger.Warn("admin lookup failed for ticket-created intent", zap.Error(err))
		return nil
	}
	for _, admin := range admins {
		s.enqueue(ctx, Intent{
			RecipientID: admin.ID,
			Title:       "New ticket " + payload.TicketNumber,
			Message:     payload.Subject,
			Priority:    string(payload.Priority),
			Payload: map[string]any{
				"ticket_id":     event.TicketID,
				"ticket_number": payload.TicketNumber,
				"category_id":   payload.CategoryID,
			},
		})
	}
	return nil
}

func (s *NotificationService) onCrisisDetected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CrisisDetectedPayload)
	if !ok {
		return nil
	}
	admins, err := s.staff.ListActiveByRoles(ctx, []domain.Role{domain.RoleAdmin})
	if err != nil {
		s.logger.Error("admin lookup failed for crisis alert", zap.Error(err))
		return nil
	}
	for _, admin := range admins {
		s.enqueue(ctx, Intent{
			RecipientID: admin.ID,
			Title:       "Crisis alert on " + payload.TicketNumber,
			Message:     fmt.Sprintf("Crisis indicators detected: %v", payload.Keywords),
			Priority:    string(domain.TicketPriorityUrgent),
			Payload: map[string]any{
				"ticket_id":     event.TicketID,
				"ticket_number": payload.TicketNumber,
				"keywords":      payload.Keywords,
			},
		})
	}
	return nil
}

func (s *NotificationService) onTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.AssigneeID == nil {
		return nil
	}
	priority := string(domain.TicketPriorityMedium)
	if payload.CrisisFlag {
		priority = string(domain.TicketPriorityUrgent)
	}
	s.enqueue(ctx, Intent{
		RecipientID: *payload.AssigneeID,
		Title:       "Ticket assigned: " + payload.TicketNumber,
		Message:     fmt.Sprintf("Assignment mode: %s", payload.Mode),
		Priority:    priority,
		Payload: map[string]any{
			"ticket_id":     event.TicketID,
			"ticket_number": payload.TicketNumber,
		},
	})
	s.enqueue(ctx, Intent{
		RecipientID: payload.OwnerID,
		Title:       "Your ticket is being handled",
		Message:     "Ticket " + payload.TicketNumber + " has been assigned to a staff member.",
		Priority:    string(domain.TicketPriorityLow),
		Payload: map[string]any{
			"ticket_id":     event.TicketID,
			"ticket_number": payload.TicketNumber,
		},
	})
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("ticket status changed",
		zap.Int64("ticket_id", event.TicketID),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)))
	return nil
}

func (s *NotificationService) onResponseAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ResponseAddedPayload)
	if !ok {
		return nil
	}
	// Internal notes stay invisible to the owner, so no intent either.
	if payload.IsInternal {
		return nil
	}
	if payload.AuthorRole.IsStaff() {
		s.enqueue(ctx, Intent{
			RecipientID: payload.OwnerID,
			Title:       "New reply on " + payload.TicketNumber,
			Message:     "A staff member replied to your ticket.",
			Priority:    string(domain.TicketPriorityMedium),
			Payload: map[string]any{
				"ticket_id":   event.TicketID,
				"response_id": payload.ResponseID,
			},
		})
		return nil
	}
	if payload.AssigneeID != nil {
		s.enqueue(ctx, Intent{
			RecipientID: *payload.AssigneeID,
			Title:       "Student reply on " + payload.TicketNumber,
			Message:     "The ticket owner added a new message.",
			Priority:    string(domain.TicketPriorityMedium),
			Payload: map[string]any{
				"ticket_id":   event.TicketID,
				"response_id": payload.ResponseID,
			},
		})
	}
	return nil
}

func (s *NotificationService) enqueue(ctx context.Context, intent Intent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Enqueue(ctx, intent); err != nil {
		s.logger.Warn("notification intent dropped",
			zap.Int64("recipient_id", intent.RecipientID),
			zap.String("title", intent.Title),
			zap.Error(err))
	}
}
