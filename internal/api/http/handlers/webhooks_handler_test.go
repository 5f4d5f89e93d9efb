package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/contact-inbox/internal/api/http"
	"github.com/spec-kit/contact-inbox/internal/api/http/handlers"
	"github.com/spec-kit/contact-inbox/internal/domain"
	"github.com/spec-kit/contact-inbox/internal/mailer"
	"github.com/spec-kit/contact-inbox/internal/repository"
	"github.com/spec-kit/contact-inbox/internal/service"
	"github.com/spec-kit/contact-inbox/internal/webhook"
)

// stubContactStore holds a single correlatable record.
type stubContactStore struct {
	record *domain.Contact
}

func (s *stubContactStore) Create(ctx context.Context, contact *domain.Contact) error { return nil }

func (s *stubContactStore) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubContactStore) ListWithFilter(ctx context.Context, filter repository.ContactFilter) ([]domain.Contact, error) {
	return nil, nil
}

func (s *stubContactStore) UpdateStatus(ctx context.Context, id string, status domain.ContactStatus) error {
	return nil
}

func (s *stubContactStore) SetAdminReply(ctx context.Context, id, reply, operatorID string) error {
	return nil
}

func (s *stubContactStore) LatestRepliedByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	if s.record == nil || s.record.Email != email || s.record.AdminReply == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *s.record
	return &copied, nil
}

func (s *stubContactStore) AttachUserReply(ctx context.Context, id, body string, observedUpdatedAt time.Time) error {
	if s.record == nil || s.record.ID != id || !s.record.UpdatedAt.Equal(observedUpdatedAt) {
		return pgx.ErrNoRows
	}
	now := time.Now()
	s.record.UserReply = &body
	s.record.UserRepliedAt = &now
	s.record.Status = domain.ContactStatusNew
	s.record.UpdatedAt = now
	return nil
}

type stubProvider struct {
	email *mailer.Email
}

func (p *stubProvider) GetEmail(ctx context.Context, id string) (*mailer.Email, error) {
	if p.email == nil || p.email.ID != id {
		return nil, mailer.ErrEmailNotFound
	}
	return p.email, nil
}

func (p *stubProvider) SendEmail(ctx context.Context, req mailer.SendRequest) (string, error) {
	return "out_1", nil
}

func newWebhookApp(store *stubContactStore, provider *stubProvider, verifier *webhook.Verifier) *fiber.App {
	inbound := service.NewInboundEmailService(service.InboundEmailDependencies{
		ContactRepo: store,
		Provider:    provider,
		Verifier:    verifier,
	}, zap.NewNop())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	app.Post("/webhooks/email", handlers.NewWebhooksHandler(inbound).IncomingEmail)
	return app
}

func signedRequest(t *testing.T, verifier *webhook.Verifier, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if verifier != nil {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set(webhook.HeaderID, "d1")
		req.Header.Set(webhook.HeaderTimestamp, ts)
		req.Header.Set(webhook.HeaderSignature, verifier.Sign("d1", ts, body))
	}
	return req
}

func TestIncomingEmail_EndToEnd(t *testing.T) {
	verifier, err := webhook.NewVerifier("whsec_dGVzdHNlY3JldA==", 5*time.Minute)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	adminReply := "We'll look into it"
	repliedAt := time.Now().Add(-time.Hour)
	store := &stubContactStore{record: &domain.Contact{
		ID:         "c1",
		Email:      "jane@example.com",
		Status:     domain.ContactStatusReplied,
		AdminReply: &adminReply,
		RepliedAt:  &repliedAt,
		UpdatedAt:  repliedAt,
	}}
	provider := &stubProvider{email: &mailer.Email{ID: "e1", Text: "Thanks, one more question..."}}
	app := newWebhookApp(store, provider, verifier)

	body, _ := json.Marshal(map[string]any{
		"type": "email.received",
		"data": map[string]any{
			"email_id": "e1",
			"from":     "Jane Doe <jane@example.com>",
		},
	})

	resp, err := app.Test(signedRequest(t, verifier, body))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Success bool `json:"success"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &payload); err != nil || !payload.Success {
		t.Fatalf("expected {success:true}, got %s", raw)
	}

	if store.record.UserReply == nil || *store.record.UserReply != "Thanks, one more question..." {
		t.Errorf("user reply = %v, want hydrated text", store.record.UserReply)
	}
	if store.record.Status != domain.ContactStatusNew {
		t.Errorf("status = %s, want new", store.record.Status)
	}
	if store.record.UserRepliedAt == nil {
		t.Error("user_replied_at must be set")
	}
}

func TestIncomingEmail_TamperedSignature(t *testing.T) {
	verifier, err := webhook.NewVerifier("whsec_dGVzdHNlY3JldA==", 5*time.Minute)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	adminReply := "ok"
	store := &stubContactStore{record: &domain.Contact{
		ID: "c1", Email: "jane@example.com", AdminReply: &adminReply,
	}}
	app := newWebhookApp(store, &stubProvider{}, verifier)

	body, _ := json.Marshal(map[string]any{
		"type": "email.received",
		"data": map[string]any{"email_id": "e1", "from": "jane@example.com"},
	})
	req := signedRequest(t, verifier, body)

	// Replace the body after signing.
	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] = 'X'
	req.Body = io.NopCloser(bytes.NewReader(tampered))
	req.ContentLength = int64(len(tampered))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if store.record.UserReply != nil {
		t.Error("rejected delivery must not mutate the store")
	}
}

func TestIncomingEmail_IgnoredEventType(t *testing.T) {
	app := newWebhookApp(&stubContactStore{}, &stubProvider{}, nil)

	body := []byte(`{"type":"email.delivered","data":{"email_id":"e1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		t.Fatalf("expected a no-op message, got %s", raw)
	}
}

func TestIncomingEmail_NoMatchAcked(t *testing.T) {
	provider := &stubProvider{email: &mailer.Email{ID: "e1", Text: "hello"}}
	app := newWebhookApp(&stubContactStore{}, provider, nil)

	body, _ := json.Marshal(map[string]any{
		"type": "email.received",
		"data": map[string]any{"email_id": "e1", "from": "stranger@example.com"},
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
