package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/contact-inbox/internal/events"
	"github.com/spec-kit/contact-inbox/internal/mailer"
	"github.com/spec-kit/contact-inbox/internal/repository"
	"github.com/spec-kit/contact-inbox/internal/webhook"
	apperrors "github.com/spec-kit/contact-inbox/pkg/util"
)

// EventTypeEmailReceived is the only provider event this service acts on. The
// webhook endpoint is multiplexed, so other event types are acknowledged
// without processing.
const EventTypeEmailReceived = "email.received"

// attachAttempts bounds the lookup-and-update loop when a concurrent delivery
// wins the conditional write.
const attachAttempts = 3

// DeliveryLog remembers webhook delivery ids that reached a terminal outcome.
// Ids are recorded only on completion, never on receipt: a delivery that fails
// with a retryable error must stay unknown to the log so the provider's
// redelivery is processed, not swallowed as a duplicate.
type DeliveryLog interface {
	Seen(ctx context.Context, deliveryID string) (bool, error)
	Record(ctx context.Context, deliveryID string) error
}

// InboundEmailEvent is the webhook payload shape. Only Type and the referenced
// email id plus sender are consumed.
type InboundEmailEvent struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Data      struct {
		EmailID   string   `json:"email_id"`
		From      string   `json:"from"`
		To        []string `json:"to"`
		Subject   string   `json:"subject"`
		MessageID string   `json:"message_id"`
	} `json:"data"`
}

// InboundResult describes what a delivery produced.
type InboundResult struct {
	Processed bool
	Reason    string
	ContactID string
}

// InboundEmailService correlates inbound follow-up emails to contact records.
type InboundEmailService struct {
	contacts   repository.ContactRepository
	provider   mailer.Provider
	verifier   *webhook.Verifier
	dispatcher events.Dispatcher
	deliveries DeliveryLog
	logger     *zap.Logger
}

// InboundEmailDependencies bundles collaborators for the service.
type InboundEmailDependencies struct {
	ContactRepo repository.ContactRepository
	Provider    mailer.Provider
	Verifier    *webhook.Verifier
	Dispatcher  events.Dispatcher
	Deliveries  DeliveryLog
}

// NewInboundEmailService builds the service. A nil Verifier disables signature
// checking; config.Load refuses that combination in production, and main logs
// the decision at startup.
func NewInboundEmailService(deps InboundEmailDependencies, logger *zap.Logger) *InboundEmailService {
	return &InboundEmailService{
		contacts:   deps.ContactRepo,
		provider:   deps.Provider,
		verifier:   deps.Verifier,
		dispatcher: deps.Dispatcher,
		deliveries: deps.Deliveries,
		logger:     logger,
	}
}

// VerificationEnabled reports whether deliveries must carry a valid signature.
func (s *InboundEmailService) VerificationEnabled() bool {
	return s.verifier != nil
}

// HandleDelivery processes one webhook delivery end to end: verify, dedup,
// filter, hydrate, correlate, update. The raw body must be passed unmodified;
// re-serializing it would break signature verification.
func (s *InboundEmailService) HandleDelivery(ctx context.Context, rawBody []byte, id, timestamp, signature string) (*InboundResult, error) {
	if s.verifier != nil {
		if err := s.verifier.Verify(id, timestamp, signature, rawBody); err != nil {
			s.logger.Warn("webhook signature rejected", zap.String("delivery_id", id), zap.Error(err))
			return nil, apperrors.NewUnauthorized("invalid webhook signature")
		}
	}

	if id != "" && s.alreadyCompleted(ctx, id) {
		return &InboundResult{Processed: false, Reason: "duplicate delivery"}, nil
	}

	var event InboundEmailEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, apperrors.NewValidationError("malformed webhook payload", nil)
	}

	if event.Type != EventTypeEmailReceived {
		s.markCompleted(ctx, id)
		return &InboundResult{Processed: false, Reason: "ignored event type"}, nil
	}
	if event.Data.EmailID == "" {
		return nil, apperrors.NewValidationError("missing email_id", nil)
	}

	sender := mailer.ExtractAddress(event.Data.From)

	email, err := s.provider.GetEmail(ctx, event.Data.EmailID)
	if err != nil {
		if errors.Is(err, mailer.ErrEmailNotFound) {
			// Redelivery can never succeed for a missing message; ack it.
			s.logger.Warn("referenced email absent at provider",
				zap.String("email_id", event.Data.EmailID))
			s.markCompleted(ctx, id)
			return &InboundResult{Processed: false, Reason: "email content not found"}, nil
		}
		// Retryable: the id is deliberately not recorded so the provider's
		// redelivery gets a fresh attempt.
		return nil, apperrors.NewUpstreamError("failed to fetch email content", err)
	}

	body := email.Body()

	contactID, err := s.attachReply(ctx, sender, body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Expected for unsolicited mail; not an error.
			s.markCompleted(ctx, id)
			return &InboundResult{Processed: false, Reason: "no matching contact"}, nil
		}
		return nil, apperrors.MapError(err)
	}

	s.markCompleted(ctx, id)

	s.publish(ctx, events.EventContactUserReplied, contactID, events.UserRepliedPayload{
		Email:       sender,
		EmailID:     event.Data.EmailID,
		BodyPreview: preview(body),
	})

	s.logger.Info("user reply attached",
		zap.String("contact_id", contactID),
		zap.String("sender", sender))
	return &InboundResult{Processed: true, ContactID: contactID}, nil
}

// attachReply looks up the most recently replied-to contact for the sender and
// attaches the reply with a conditional update. When a concurrent delivery
// changes the record between lookup and write, the lookup is re-run.
func (s *InboundEmailService) attachReply(ctx context.Context, sender, body string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < attachAttempts; attempt++ {
		contact, err := s.contacts.LatestRepliedByEmail(ctx, sender)
		if err != nil {
			return "", err
		}

		err = s.contacts.AttachUserReply(ctx, contact.ID, body, contact.UpdatedAt)
		if err == nil {
			return contact.ID, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		lastErr = err
		s.logger.Debug("conditional update lost, retrying correlation",
			zap.String("contact_id", contact.ID),
			zap.Int("attempt", attempt+1))
	}
	return "", lastErr
}

// alreadyCompleted reports whether the delivery id reached a terminal outcome
// before. The log being unavailable degrades to at-least-once processing,
// which matches the provider's own delivery semantics.
func (s *InboundEmailService) alreadyCompleted(ctx context.Context, deliveryID string) bool {
	if s.deliveries == nil {
		return false
	}
	seen, err := s.deliveries.Seen(ctx, deliveryID)
	if err != nil {
		s.logger.Warn("delivery dedup unavailable", zap.Error(err))
		return false
	}
	return seen
}

func (s *InboundEmailService) markCompleted(ctx context.Context, deliveryID string) {
	if s.deliveries == nil || deliveryID == "" {
		return
	}
	if err := s.deliveries.Record(ctx, deliveryID); err != nil {
		s.logger.Warn("failed to record delivery id", zap.Error(err))
	}
}

func (s *InboundEmailService) publish(ctx context.Context, eventType events.EventType, contactID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ContactID: contactID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// preview truncates on a rune boundary; event payloads are JSON-encoded and
// must stay valid UTF-8.
func preview(body string) string {
	const max = 120
	if len(body) <= max {
		return body
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
