// Package mailer talks to the transactional email provider's JSON API: sending
// operator replies out, and fetching full message content referenced by
// inbound webhook payloads.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/contact-inbox/internal/config"
)

// ErrEmailNotFound indicates the provider has no email with the requested id.
var ErrEmailNotFound = errors.New("mailer: email not found")

// Email is the provider's representation of a single message.
type Email struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	Text      string   `json:"text"`
	HTML      string   `json:"html"`
	CreatedAt string   `json:"created_at"`
}

// Body returns the preferred reply body: plain text, else html, else empty.
// An email without any body is still a valid reply.
func (e *Email) Body() string {
	if e.Text != "" {
		return e.Text
	}
	return e.HTML
}

// SendRequest describes an outbound email.
type SendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Provider is the surface services depend on.
type Provider interface {
	GetEmail(ctx context.Context, id string) (*Email, error)
	SendEmail(ctx context.Context, req SendRequest) (string, error)
}

// Client implements Provider over the provider's HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.EmailConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// GetEmail fetches the full content of a message by id.
func (c *Client) GetEmail(ctx context.Context, id string) (*Email, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/emails/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mailer: get email %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrEmailNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mailer: get email %s: unexpected status %d", id, resp.StatusCode)
	}

	var email Email
	if err := json.NewDecoder(resp.Body).Decode(&email); err != nil {
		return nil, fmt.Errorf("mailer: decode email %s: %w", id, err)
	}
	return &email, nil
}

// SendEmail submits an outbound message and returns the provider-assigned id.
func (c *Client) SendEmail(ctx context.Context, sendReq SendRequest) (string, error) {
	payload, err := json.Marshal(sendReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("mailer: send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("mailer: send email: unexpected status %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("mailer: decode send response: %w", err)
	}
	return created.ID, nil
}
