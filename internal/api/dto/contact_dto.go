package dto

import (
	"time"

	"github.com/spec-kit/contact-inbox/internal/domain"
)

// SubmitContactRequest payload for the public contact form.
type SubmitContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ReplyRequest payload for operator replies.
type ReplyRequest struct {
	Body string `json:"body"`
}

// ContactResponse is the full contact record view.
type ContactResponse struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	Message       string               `json:"message"`
	Status        domain.ContactStatus `json:"status"`
	AdminReply    *string              `json:"admin_reply,omitempty"`
	RepliedAt     *time.Time           `json:"replied_at,omitempty"`
	RepliedBy     *string              `json:"replied_by,omitempty"`
	UserReply     *string              `json:"user_reply,omitempty"`
	UserRepliedAt *time.Time           `json:"user_replied_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}
