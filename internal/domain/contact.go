package domain

import "time"

// ContactStatus enumerates lifecycle states for contact records.
type ContactStatus string

const (
	ContactStatusNew      ContactStatus = "new"
	ContactStatusRead     ContactStatus = "read"
	ContactStatusReplied  ContactStatus = "replied"
	ContactStatusArchived ContactStatus = "archived"
)

// Valid reports whether the status is a known lifecycle state.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusArchived:
		return true
	}
	return false
}

// Contact is the aggregate for one contact-form submission and its reply thread.
// AdminReply/RepliedAt/RepliedBy are set when an operator responds; UserReply
// and UserRepliedAt are set when a follow-up email from the sender is
// correlated back to the record.
type Contact struct {
	ID            string
	Name          string
	Email         string
	Message       string
	Status        ContactStatus
	AdminReply    *string
	RepliedAt     *time.Time
	RepliedBy     *string
	UserReply     *string
	UserRepliedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
