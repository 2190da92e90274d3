package worker

import (
	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/service"
)

// StartNotificationWorker subscribes the account and enrollment mailers to the
// dispatcher. Delivery runs inline with Publish so that callers which depend on
// the mail (forgot-password) see its error.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) []events.EventType {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifications == nil {
		logger.Warn("notification worker disabled; account e-mails will not be sent")
		return nil
	}

	registered := notifications.RegisterHandlers()
	names := make([]string, len(registered))
	for i, event := range registered {
		names[i] = string(event)
	}
	logger.Info("notification worker subscribed", zap.Strings("events", names))
	return registered
}
