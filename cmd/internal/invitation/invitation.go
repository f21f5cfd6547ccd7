// Package invitation owns invitation requests and their pending -> approved/declined lifecycle.
//
// Approval is a two-step saga: the status transition commits first, then a guest record is
// materialized for the requester. A failure in the second step never rolls back the first;
// it is reported as *MaterializeError and can be retried with Service.Materialize.
package invitation

import (
	"strings"
	"time"
)

// Status is an invitation's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// ParseStatus normalizes s and reports whether it is a known status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusDeclined:
		return st, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusDeclined }

// Invitation represents an invitation row.
type Invitation struct {
	ID          string
	EventID     string
	UserID      string
	Message     *string
	Status      Status
	RespondedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput describes a request to attend an event.
type CreateInput struct {
	EventID string
	UserID  string
	Message *string
	Now     time.Time
}

// UpdateStatusInput describes the host's response.
type UpdateStatusInput struct {
	InvitationID string
	Status       Status
	ActorID      string
	Now          time.Time
}

// Filter narrows List; empty fields do not filter.
type Filter struct {
	EventID string
	UserID  string
	Status  Status
}

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

// ListResult is one page of invitations plus the total match count.
type ListResult struct {
	Items    []Invitation
	Total    int
	Page     int
	PageSize int
}

const (
	maxMessageLen   = 1000
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 100_000
)

// Normalize applies defaults and caps.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset returns the row offset for the page. Callers reject pages past maxPage first.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }
