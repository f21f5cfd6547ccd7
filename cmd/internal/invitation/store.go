package invitation

import (
	"context"
	"time"
)

// CreateRecord is a normalized invitation insert payload.
type CreateRecord struct {
	ID        string
	EventID   string
	UserID    string
	Message   *string
	CreatedAt time.Time
}

// TransitionRecord moves a pending invitation to a terminal status.
type TransitionRecord struct {
	ID  string
	To  Status
	Now time.Time
}

// Store is the persistence boundary for invitations.
//
// Requirements:
//   - Create returns errs.ConflictError{Field: "event_user"} for a duplicate (event_id, user_id).
//   - Transition is a single conditional write guarded by status = 'pending'. It returns
//     errs.NotFoundError for an unknown id and errNotPending when the row already responded.
//   - List orders by created_at DESC, id DESC and reports the total match count.
type Store interface {
	Create(ctx context.Context, in CreateRecord) (Invitation, error)
	Get(ctx context.Context, id string) (Invitation, error)
	Transition(ctx context.Context, in TransitionRecord) (Invitation, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter, limit, offset int) ([]Invitation, int, error)
}
