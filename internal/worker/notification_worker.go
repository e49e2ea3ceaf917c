package worker

import (
	"github.com/campuscare/triage-service/internal/events"
	"github.com/campuscare/triage-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to the
// dispatcher so ticket events start producing intents.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService) {
	if notifications == nil || dispatcher == nil {
		return
	}
	notifications.Register(dispatcher)
}
