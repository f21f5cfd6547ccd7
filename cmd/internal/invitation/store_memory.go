package invitation

import (
	"context"
	"sort"
	"sync"

	"guestlist/cmd/internal/errs"
)

// MemoryStore is a dev-only fallback when DB is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[string]*Invitation
	byEvtUs map[string]string // event_id + "\x00" + user_id -> id
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:    make(map[string]*Invitation),
		byEvtUs: make(map[string]string),
	}
}

func eventUserKey(eventID, userID string) string { return eventID + "\x00" + userID }

// Create inserts a pending invitation.
func (s *MemoryStore) Create(ctx context.Context, in CreateRecord) (Invitation, error) {
	const op = "invitation.Create"

	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventUserKey(in.EventID, in.UserID)
	if _, ok := s.byEvtUs[key]; ok {
		return Invitation{}, errs.ConflictError{Op: op, Field: ConflictEventUser}
	}
	inv := &Invitation{
		ID:        in.ID,
		EventID:   in.EventID,
		UserID:    in.UserID,
		Message:   in.Message,
		Status:    StatusPending,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.CreatedAt,
	}
	s.rows[inv.ID] = inv
	s.byEvtUs[key] = inv.ID
	return *inv, nil
}

// Get fetches an invitation by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.rows[id]
	if !ok {
		return Invitation{}, errs.NotFound("invitation.Get", "invitation")
	}
	return *inv, nil
}

// Transition moves a pending invitation to in.To under the write lock.
func (s *MemoryStore) Transition(ctx context.Context, in TransitionRecord) (Invitation, error) {
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[in.ID]
	if !ok {
		return Invitation{}, errs.NotFound("invitation.Transition", "invitation")
	}
	if inv.Status != StatusPending {
		return Invitation{}, errNotPending
	}
	at := in.Now
	inv.Status = in.To
	inv.RespondedAt = &at
	inv.UpdatedAt = at
	return *inv, nil
}

// Delete removes an invitation.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[id]
	if !ok {
		return errs.NotFound("invitation.Delete", "invitation")
	}
	delete(s.byEvtUs, eventUserKey(inv.EventID, inv.UserID))
	delete(s.rows, id)
	return nil
}

// List returns a filtered page, newest first.
func (s *MemoryStore) List(ctx context.Context, f Filter, limit, offset int) ([]Invitation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	matched := make([]Invitation, 0, len(s.rows))
	for _, inv := range s.rows {
		if f.EventID != "" && inv.EventID != f.EventID {
			continue
		}
		if f.UserID != "" && inv.UserID != f.UserID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		matched = append(matched, *inv)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Invitation{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
