package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/contact-inbox/internal/config"
	"github.com/spec-kit/contact-inbox/internal/domain"
	"github.com/spec-kit/contact-inbox/internal/mailer"
	apperrors "github.com/spec-kit/contact-inbox/pkg/util"
)

func newContactService(repo *mockContactRepo, provider *mockProvider) *ContactService {
	return NewContactService(repo, provider, nil, config.EmailConfig{From: "support@example.com"}, zap.NewNop())
}

func TestSubmit(t *testing.T) {
	var created *domain.Contact
	repo := &mockContactRepo{
		CreateFunc: func(ctx context.Context, contact *domain.Contact) error {
			contact.ID = "c1"
			created = contact
			return nil
		},
	}
	svc := newContactService(repo, &mockProvider{})

	contact, err := svc.Submit(context.Background(), ContactCreateInput{
		Name:    "  Jane Doe ",
		Email:   " jane@example.com ",
		Message: "hello",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if contact.Status != domain.ContactStatusNew {
		t.Errorf("status = %s, want new", contact.Status)
	}
	if created.Name != "Jane Doe" || created.Email != "jane@example.com" {
		t.Errorf("expected trimmed fields, got %+v", created)
	}
}

func TestGet_TransitionsNewToRead(t *testing.T) {
	var statusUpdate domain.ContactStatus
	repo := &mockContactRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Contact, error) {
			return &domain.Contact{ID: id, Status: domain.ContactStatusNew}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id string, status domain.ContactStatus) error {
			statusUpdate = status
			return nil
		},
	}
	svc := newContactService(repo, &mockProvider{})

	contact, err := svc.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if contact.Status != domain.ContactStatusRead || statusUpdate != domain.ContactStatusRead {
		t.Errorf("expected new -> read transition, got %s (update %s)", contact.Status, statusUpdate)
	}
}

func TestGet_LeavesOtherStatusesAlone(t *testing.T) {
	repo := &mockContactRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Contact, error) {
			return &domain.Contact{ID: id, Status: domain.ContactStatusReplied}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id string, status domain.ContactStatus) error {
			t.Error("no status update expected")
			return nil
		},
	}
	svc := newContactService(repo, &mockProvider{})

	contact, err := svc.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if contact.Status != domain.ContactStatusReplied {
		t.Errorf("status = %s, want replied", contact.Status)
	}
}

func TestReply(t *testing.T) {
	reply := "We'll look into it"
	now := time.Now()
	state := &domain.Contact{ID: "c1", Email: "jane@example.com", Status: domain.ContactStatusRead}
	repo := &mockContactRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Contact, error) {
			copied := *state
			return &copied, nil
		},
		SetAdminReplyFunc: func(ctx context.Context, id, body, operatorID string) error {
			state.AdminReply = &body
			state.RepliedAt = &now
			state.RepliedBy = &operatorID
			state.Status = domain.ContactStatusReplied
			return nil
		},
	}
	var sent *mailer.SendRequest
	provider := &mockProvider{
		SendEmailFunc: func(ctx context.Context, req mailer.SendRequest) (string, error) {
			sent = &req
			return "out_1", nil
		},
	}
	svc := newContactService(repo, provider)

	contact, err := svc.Reply(context.Background(), "op1", "c1", reply)
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if contact.Status != domain.ContactStatusReplied {
		t.Errorf("status = %s, want replied", contact.Status)
	}
	if sent == nil {
		t.Fatal("expected an outbound email")
	}
	if sent.To[0] != "jane@example.com" || sent.Text != reply {
		t.Errorf("unexpected outbound email %+v", sent)
	}
}

func TestReply_ArchivedConflict(t *testing.T) {
	repo := &mockContactRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Contact, error) {
			return &domain.Contact{ID: id, Status: domain.ContactStatusArchived}, nil
		},
	}
	svc := newContactService(repo, &mockProvider{})

	_, err := svc.Reply(context.Background(), "op1", "c1", "too late")
	if err == nil {
		t.Fatal("expected conflict")
	}
	if status := apperrors.ToDomainError(err).HTTPStatus; status != 409 {
		t.Errorf("status = %d, want 409", status)
	}
}

func TestArchive_Idempotent(t *testing.T) {
	repo := &mockContactRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Contact, error) {
			return &domain.Contact{ID: id, Status: domain.ContactStatusArchived}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id string, status domain.ContactStatus) error {
			t.Error("already archived, no update expected")
			return nil
		},
	}
	svc := newContactService(repo, &mockProvider{})

	contact, err := svc.Archive(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if contact.Status != domain.ContactStatusArchived {
		t.Errorf("status = %s, want archived", contact.Status)
	}
}
