package gift

import (
	"context"
	"sort"
	"sync"

	"guestlist/cmd/internal/errs"
)

// MemoryStore is a dev-only fallback when DB is not configured.
type MemoryStore struct {
	mu    sync.RWMutex
	gifts map[string]*Gift
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{gifts: make(map[string]*Gift)}
}

// Create inserts a gift.
func (s *MemoryStore) Create(ctx context.Context, in CreateRecord) (Gift, error) {
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gifts[in.ID]; ok {
		return Gift{}, errs.ConflictError{Op: "gift.Create", Field: "id"}
	}
	g := &Gift{
		ID:            in.ID,
		GuestID:       in.GuestID,
		EventID:       in.EventID,
		PaymentMethod: in.PaymentMethod,
		Currency:      in.Currency,
		Amount:        in.Amount,
		Note:          in.Note,
		ReceiptImage:  in.ReceiptImage,
		CreatedAt:     in.CreatedAt,
		UpdatedAt:     in.CreatedAt,
	}
	s.gifts[g.ID] = g
	return *g, nil
}

// Get fetches a gift by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Gift, error) {
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gifts[id]
	if !ok {
		return Gift{}, errs.NotFound("gift.Get", "gift")
	}
	return *g, nil
}

// Update applies the non-nil fields of in.
func (s *MemoryStore) Update(ctx context.Context, in UpdateRecord) (Gift, error) {
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gifts[in.ID]
	if !ok {
		return Gift{}, errs.NotFound("gift.Update", "gift")
	}
	if in.PaymentMethod != nil {
		g.PaymentMethod = *in.PaymentMethod
	}
	if in.Currency != nil {
		g.Currency = *in.Currency
	}
	if in.Amount != nil {
		g.Amount = *in.Amount
	}
	if in.Note != nil {
		g.Note = clearable(in.Note)
	}
	if in.ReceiptImage != nil {
		g.ReceiptImage = clearable(in.ReceiptImage)
	}
	g.UpdatedAt = in.Now
	return *g, nil
}

// Delete removes a gift and returns it.
func (s *MemoryStore) Delete(ctx context.Context, id string) (Gift, error) {
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gifts[id]
	if !ok {
		return Gift{}, errs.NotFound("gift.Delete", "gift")
	}
	delete(s.gifts, id)
	return *g, nil
}

// DeleteByGuest removes every gift of a guest.
func (s *MemoryStore) DeleteByGuest(ctx context.Context, guestID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, g := range s.gifts {
		if g.GuestID == guestID {
			delete(s.gifts, id)
			n++
		}
	}
	return n, nil
}

// ListByGuest returns a guest's gifts, newest first.
func (s *MemoryStore) ListByGuest(ctx context.Context, guestID string) ([]Gift, error) {
	return s.list(ctx, func(g *Gift) bool { return g.GuestID == guestID })
}

// ListByEvent returns an event's gifts, newest first.
func (s *MemoryStore) ListByEvent(ctx context.Context, eventID string) ([]Gift, error) {
	return s.list(ctx, func(g *Gift) bool { return g.EventID == eventID })
}

// CountByGuest counts a guest's gifts.
func (s *MemoryStore) CountByGuest(ctx context.Context, guestID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.gifts {
		if g.GuestID == guestID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) list(ctx context.Context, match func(*Gift) bool) ([]Gift, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Gift, 0, 8)
	for _, g := range s.gifts {
		if match(g) {
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

// clearable maps an explicit empty string to NULL.
func clearable(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
