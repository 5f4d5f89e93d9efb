package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/contact-inbox/internal/service"
	"github.com/spec-kit/contact-inbox/internal/webhook"
)

// WebhooksHandler receives provider webhook deliveries.
type WebhooksHandler struct {
	inbound *service.InboundEmailService
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(inbound *service.InboundEmailService) *WebhooksHandler {
	return &WebhooksHandler{inbound: inbound}
}

// IncomingEmail POST /webhooks/email. The raw body is handed to the service
// untouched; signature verification depends on the exact bytes received.
func (h *WebhooksHandler) IncomingEmail(c *fiber.Ctx) error {
	result, err := h.inbound.HandleDelivery(
		c.UserContext(),
		c.Body(),
		c.Get(webhook.HeaderID),
		c.Get(webhook.HeaderTimestamp),
		c.Get(webhook.HeaderSignature),
	)
	if err != nil {
		return err
	}

	if !result.Processed {
		return c.JSON(fiber.Map{"message": result.Reason})
	}
	return c.JSON(fiber.Map{"success": true})
}
