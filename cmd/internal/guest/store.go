package guest

import (
	"context"
	"time"
)

// CreateRecord is a normalized guest insert payload.
type CreateRecord struct {
	ID          string
	EventID     string
	UserID      *string
	Name        string
	Email       *string
	Phone       *string
	Status      Status
	InviteToken string
	Notes       *string
	CreatedAt   time.Time
}

// RSVPRecord describes an RSVP write addressed by token.
type RSVPRecord struct {
	Token  string
	Status Status
	Notes  *string
	Now    time.Time
}

// Store is the persistence boundary for guests.
//
// Requirements:
//   - Unique invite_token; unique (event_id, user_id) when user_id is set.
//     Violations surface as errs.ConflictError with Field "invite_token" / "event_user".
//   - MarkOpened/MarkClicked only write when the timestamp is unset, in one statement.
//     They report whether a row changed and never fail for an unknown token.
//   - Listings are newest first.
type Store interface {
	Create(ctx context.Context, in CreateRecord) (Guest, error)
	Get(ctx context.Context, id string) (Guest, error)
	GetByToken(ctx context.Context, token string) (Guest, error)
	GetByEventUser(ctx context.Context, eventID, userID string) (Guest, error)
	ListByEvent(ctx context.Context, eventID string) ([]Guest, error)
	Delete(ctx context.Context, id string) error

	MarkOpened(ctx context.Context, token string, now time.Time) (bool, error)
	MarkClicked(ctx context.Context, token string, now time.Time) (bool, error)
	UpdateRSVP(ctx context.Context, in RSVPRecord) (Guest, error)
	RotateToken(ctx context.Context, id, newToken string, now time.Time) (Guest, error)
	SetHasGivenGift(ctx context.Context, id string, has bool, now time.Time) error
}
