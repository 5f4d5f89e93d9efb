package domain

import "time"

// Operator is a human who triages and replies to contact records.
type Operator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
