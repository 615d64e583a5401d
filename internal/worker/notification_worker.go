package worker

import (
	"github.com/spec-kit/isp-routing-engine/internal/events"
	"github.com/spec-kit/isp-routing-engine/internal/service"
	"github.com/spec-kit/isp-routing-engine/internal/stream"
)

// StartNotificationWorker registers event handlers for notifications and
// the audit stream.
func StartNotificationWorker(notificationService *service.NotificationService, publisher *stream.KafkaPublisher, dispatcher events.Dispatcher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	publisher.RegisterHandlers(dispatcher)
}
