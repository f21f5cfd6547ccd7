package guest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"guestlist/cmd/internal/errs"
)

// MemoryStore is a dev-only fallback when DB is not configured.
// It enforces the same uniqueness rules as the Postgres schema.
type MemoryStore struct {
	mu        sync.RWMutex
	guests    map[string]*Guest
	byToken   map[string]string // invite_token -> id
	byEventUs map[string]string // event_id + "\x00" + user_id -> id
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guests:    make(map[string]*Guest),
		byToken:   make(map[string]string),
		byEventUs: make(map[string]string),
	}
}

func eventUserKey(eventID, userID string) string { return eventID + "\x00" + userID }

// Create inserts a new guest.
func (s *MemoryStore) Create(ctx context.Context, in CreateRecord) (Guest, error) {
	const op = "guest.Create"

	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.InviteToken) == "" || strings.TrimSpace(in.EventID) == "" {
		return Guest{}, errs.Invalid(op, "missing id, event or token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byToken[in.InviteToken]; ok {
		return Guest{}, errs.ConflictError{Op: op, Field: ConflictInviteToken}
	}
	if in.UserID != nil {
		if _, ok := s.byEventUs[eventUserKey(in.EventID, *in.UserID)]; ok {
			return Guest{}, errs.ConflictError{Op: op, Field: ConflictEventUser}
		}
	}

	g := &Guest{
		ID:          in.ID,
		EventID:     in.EventID,
		UserID:      in.UserID,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Status:      in.Status,
		InviteToken: in.InviteToken,
		Notes:       in.Notes,
		CreatedAt:   in.CreatedAt,
		UpdatedAt:   in.CreatedAt,
	}
	s.guests[g.ID] = g
	s.byToken[g.InviteToken] = g.ID
	if g.UserID != nil {
		s.byEventUs[eventUserKey(g.EventID, *g.UserID)] = g.ID
	}
	return *g, nil
}

// Get fetches a guest by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Guest, error) {
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[id]
	if !ok {
		return Guest{}, errs.NotFound("guest.Get", "guest")
	}
	return *g, nil
}

// GetByToken fetches a guest by invite token.
func (s *MemoryStore) GetByToken(ctx context.Context, token string) (Guest, error) {
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.lookupTokenLocked(token)
	if g == nil {
		return Guest{}, errs.NotFound("guest.GetByToken", "guest")
	}
	return *g, nil
}

// GetByEventUser fetches the guest materialized for (eventID, userID).
func (s *MemoryStore) GetByEventUser(ctx context.Context, eventID, userID string) (Guest, error) {
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEventUs[eventUserKey(eventID, userID)]
	if !ok {
		return Guest{}, errs.NotFound("guest.GetByEventUser", "guest")
	}
	return *s.guests[id], nil
}

// ListByEvent returns an event's guests, newest first.
func (s *MemoryStore) ListByEvent(ctx context.Context, eventID string) ([]Guest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Guest, 0, 16)
	for _, g := range s.guests {
		if g.EventID == eventID {
			out = append(out, *g)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Delete removes a guest.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return errs.NotFound("guest.Delete", "guest")
	}
	delete(s.byToken, g.InviteToken)
	if g.UserID != nil {
		delete(s.byEventUs, eventUserKey(g.EventID, *g.UserID))
	}
	delete(s.guests, id)
	return nil
}

// MarkOpened sets opened_at when unset.
func (s *MemoryStore) MarkOpened(ctx context.Context, token string, now time.Time) (bool, error) {
	return s.markFirstTouch(ctx, token, now, func(g *Guest) **time.Time { return &g.OpenedAt })
}

// MarkClicked sets clicked_at when unset.
func (s *MemoryStore) MarkClicked(ctx context.Context, token string, now time.Time) (bool, error) {
	return s.markFirstTouch(ctx, token, now, func(g *Guest) **time.Time { return &g.ClickedAt })
}

func (s *MemoryStore) markFirstTouch(ctx context.Context, token string, now time.Time, field func(*Guest) **time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.lookupTokenLocked(token)
	if g == nil {
		return false, nil
	}
	ts := field(g)
	if *ts != nil {
		return false, nil
	}
	at := now
	*ts = &at
	g.UpdatedAt = now
	return true, nil
}

// UpdateRSVP sets status (and notes when given) for the token's guest.
func (s *MemoryStore) UpdateRSVP(ctx context.Context, in RSVPRecord) (Guest, error) {
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.lookupTokenLocked(in.Token)
	if g == nil {
		return Guest{}, errs.NotFound("guest.UpdateRSVP", "guest")
	}
	g.Status = in.Status
	if in.Notes != nil {
		n := *in.Notes
		g.Notes = &n
	}
	g.UpdatedAt = in.Now
	return *g, nil
}

// RotateToken replaces the guest's invite token.
func (s *MemoryStore) RotateToken(ctx context.Context, id, newToken string, now time.Time) (Guest, error) {
	const op = "guest.RotateToken"

	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	if strings.TrimSpace(newToken) == "" {
		return Guest{}, errs.Invalid(op, "empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return Guest{}, errs.NotFound(op, "guest")
	}
	if owner, taken := s.byToken[newToken]; taken && owner != id {
		return Guest{}, errs.ConflictError{Op: op, Field: ConflictInviteToken}
	}
	delete(s.byToken, g.InviteToken)
	g.InviteToken = newToken
	g.UpdatedAt = now
	s.byToken[newToken] = id
	return *g, nil
}

// SetHasGivenGift stores the derived gift indicator.
func (s *MemoryStore) SetHasGivenGift(ctx context.Context, id string, has bool, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return errs.NotFound("guest.SetHasGivenGift", "guest")
	}
	if g.HasGivenGift != has {
		g.HasGivenGift = has
		g.UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) lookupTokenLocked(token string) *Guest {
	id, ok := s.byToken[token]
	if !ok {
		return nil
	}
	return s.guests[id]
}
