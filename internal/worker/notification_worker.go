package worker

import (
	"github.com/woreda-portal/compliance-service/internal/events"
	"github.com/woreda-portal/compliance-service/internal/service"
)

// StartNotificationWorker registers event consumers: notification stubs
// and, when configured, the Redis fan-out publisher.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, publisher *events.RedisPublisher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if publisher != nil {
		publisher.Register(dispatcher)
	}
}
