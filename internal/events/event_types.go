package events

import (
	"time"

	"github.com/spec-kit/contact-inbox/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventContactReceived     EventType = "contact_received"
	EventContactRead         EventType = "contact_read"
	EventContactAdminReplied EventType = "contact_admin_replied"
	EventContactUserReplied  EventType = "contact_user_replied"
	EventContactArchived     EventType = "contact_archived"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ContactID string      `json:"contact_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ContactReceivedPayload payload.
type ContactReceivedPayload struct {
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
}

// AdminRepliedPayload payload.
type AdminRepliedPayload struct {
	OperatorID  string `json:"operator_id"`
	BodyPreview string `json:"body_preview"`
}

// UserRepliedPayload payload.
type UserRepliedPayload struct {
	Email       string `json:"email"`
	EmailID     string `json:"email_id"`
	BodyPreview string `json:"body_preview"`
}

// StatusChangedPayload payload for read/archive transitions.
type StatusChangedPayload struct {
	OldStatus domain.ContactStatus `json:"old_status"`
	NewStatus domain.ContactStatus `json:"new_status"`
}
