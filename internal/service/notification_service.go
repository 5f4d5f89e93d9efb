package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/contact-inbox/internal/events"
)

// NotificationService surfaces contact lifecycle events for observability.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventContactReceived, n.handleEvent)
	n.dispatcher.Subscribe(events.EventContactAdminReplied, n.handleEvent)
	n.dispatcher.Subscribe(events.EventContactUserReplied, n.handleEvent)
	n.dispatcher.Subscribe(events.EventContactArchived, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("contact event",
		zap.String("type", string(event.Type)),
		zap.String("contact_id", event.ContactID),
		zap.Any("payload", event.Payload))
	return nil
}
