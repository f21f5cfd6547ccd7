// Package guest owns guest records: the attendee rows addressable by a secret invite token.
package guest

import (
	"strings"
	"time"
)

// Status is a guest's RSVP state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
)

// ParseStatus normalizes s and reports whether it is a known RSVP status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusDeclined:
		return st, true
	default:
		return "", false
	}
}

// Guest represents a guest row.
type Guest struct {
	ID           string
	EventID      string
	UserID       *string
	Name         string
	Email        *string
	Phone        *string
	Status       Status
	InviteToken  string
	OpenedAt     *time.Time
	ClickedAt    *time.Time
	Notes        *string
	HasGivenGift bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput describes guest creation, either by a host or by invitation approval.
type CreateInput struct {
	EventID string
	UserID  *string
	Name    string
	Email   *string
	Phone   *string
	Status  Status
	Notes   *string
	Now     time.Time
}

const (
	maxNameLen  = 200
	maxNotesLen = 2000
)
