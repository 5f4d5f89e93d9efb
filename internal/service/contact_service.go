package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/contact-inbox/internal/config"
	"github.com/spec-kit/contact-inbox/internal/domain"
	"github.com/spec-kit/contact-inbox/internal/events"
	"github.com/spec-kit/contact-inbox/internal/mailer"
	"github.com/spec-kit/contact-inbox/internal/repository"
	apperrors "github.com/spec-kit/contact-inbox/pkg/util"
)

// ContactCreateInput carries a contact-form submission.
type ContactCreateInput struct {
	Name    string
	Email   string
	Message string
}

// ContactService coordinates the contact-record lifecycle.
type ContactService struct {
	contacts   repository.ContactRepository
	provider   mailer.Provider
	dispatcher events.Dispatcher
	emailCfg   config.EmailConfig
	logger     *zap.Logger
}

// NewContactService builds the service.
func NewContactService(contacts repository.ContactRepository, provider mailer.Provider, dispatcher events.Dispatcher, emailCfg config.EmailConfig, logger *zap.Logger) *ContactService {
	return &ContactService{
		contacts:   contacts,
		provider:   provider,
		dispatcher: dispatcher,
		emailCfg:   emailCfg,
		logger:     logger,
	}
}

// Submit records a new contact-form submission.
func (s *ContactService) Submit(ctx context.Context, input ContactCreateInput) (*domain.Contact, error) {
	contact := &domain.Contact{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Message: input.Message,
		Status:  domain.ContactStatusNew,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventContactReceived, contact.ID, events.ContactReceivedPayload{Email: contact.Email})
	return contact, nil
}

// Get returns a contact record, transitioning new records to read on first view.
func (s *ContactService) Get(ctx context.Context, id string) (*domain.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if contact.Status == domain.ContactStatusNew {
		if err := s.contacts.UpdateStatus(ctx, id, domain.ContactStatusRead); err != nil {
			return nil, apperrors.MapError(err)
		}
		contact.Status = domain.ContactStatusRead
		s.publish(ctx, events.EventContactRead, contact.ID, events.StatusChangedPayload{
			OldStatus: domain.ContactStatusNew,
			NewStatus: domain.ContactStatusRead,
		})
	}
	return contact, nil
}

// List returns contact records matching the operator's filter.
func (s *ContactService) List(ctx context.Context, filter repository.ContactFilter) ([]domain.Contact, error) {
	contacts, err := s.contacts.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return contacts, nil
}

// Reply stores an operator response and emails it to the sender. The record
// must exist; archived records cannot be replied to.
func (s *ContactService) Reply(ctx context.Context, operatorID, contactID, body string) (*domain.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if contact.Status == domain.ContactStatusArchived {
		return nil, apperrors.NewConflict("contact is archived", nil)
	}

	if err := s.contacts.SetAdminReply(ctx, contactID, body, operatorID); err != nil {
		return nil, apperrors.MapError(err)
	}

	if _, err := s.provider.SendEmail(ctx, mailer.SendRequest{
		From:    s.emailCfg.From,
		To:      []string{contact.Email},
		Subject: "Re: your message",
		Text:    body,
	}); err != nil {
		// The reply is durable either way; the operator can resend.
		s.logger.Error("failed to send reply email",
			zap.String("contact_id", contactID),
			zap.Error(err))
	}

	s.publish(ctx, events.EventContactAdminReplied, contactID, events.AdminRepliedPayload{
		OperatorID:  operatorID,
		BodyPreview: preview(body),
	})

	return s.contacts.GetByID(ctx, contactID)
}

// Archive moves a contact record out of the active queue.
func (s *ContactService) Archive(ctx context.Context, id string) (*domain.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if contact.Status == domain.ContactStatusArchived {
		return contact, nil
	}

	if err := s.contacts.UpdateStatus(ctx, id, domain.ContactStatusArchived); err != nil {
		return nil, apperrors.MapError(err)
	}
	old := contact.Status
	contact.Status = domain.ContactStatusArchived
	s.publish(ctx, events.EventContactArchived, id, events.StatusChangedPayload{
		OldStatus: old,
		NewStatus: domain.ContactStatusArchived,
	})
	return contact, nil
}

func (s *ContactService) publish(ctx context.Context, eventType events.EventType, contactID string, payload interface{}) {
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
