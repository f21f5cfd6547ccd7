package gift

import (
	"context"
	"net/url"
	"strings"
	"time"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/ids"
	"guestlist/cmd/internal/storage"
)

// Guests resolves the guest a gift belongs to.
type Guests interface {
	Get(ctx context.Context, id string) (guest.Guest, error)
}

// Service validates and records gifts.
type Service struct {
	store  Store
	guests Guests
}

// NewService constructs a Service.
func NewService(store Store, guests Guests) (*Service, error) {
	if store == nil || guests == nil {
		return nil, errs.ErrInvalidInput
	}
	return &Service{store: store, guests: guests}, nil
}

// Create records a gift for in.GuestID. The event is always taken from the guest;
// a conflicting in.EventID is rejected.
func (s *Service) Create(ctx context.Context, in CreateInput) (Gift, error) {
	const op = "gift.Create"

	if s == nil || s.store == nil {
		return Gift{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}

	method, ok := ParseMethod(in.PaymentMethod)
	if !ok {
		return Gift{}, errs.Invalid(op, "payment_method must be cash or khqr")
	}
	currency, ok := ParseCurrency(in.Currency)
	if !ok {
		return Gift{}, errs.Invalid(op, "currency must be khr or usd")
	}
	if !in.Amount.Positive() {
		return Gift{}, errs.Invalid(op, "amount must be greater than zero")
	}
	note, err := normalizeNote(op, in.Note)
	if err != nil {
		return Gift{}, err
	}
	receipt, err := normalizeReceipt(op, in.ReceiptImage)
	if err != nil {
		return Gift{}, err
	}

	guestID := strings.TrimSpace(in.GuestID)
	if guestID == "" {
		return Gift{}, errs.Invalid(op, "guest_id is required")
	}
	g, err := s.guests.Get(ctx, guestID)
	if err != nil {
		return Gift{}, err
	}
	if ev := strings.TrimSpace(in.EventID); ev != "" && ev != g.EventID {
		return Gift{}, errs.Invalid(op, "event_id does not match the guest's event")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.New(now)
	if err != nil {
		return Gift{}, err
	}

	return s.store.Create(ctx, CreateRecord{
		ID:            id,
		GuestID:       g.ID,
		EventID:       g.EventID,
		PaymentMethod: method,
		Currency:      currency,
		Amount:        in.Amount,
		Note:          note,
		ReceiptImage:  receipt,
		CreatedAt:     now,
	})
}

// Update changes only the fields present in p, validating each as Create does.
// An empty note or receipt_image clears it.
func (s *Service) Update(ctx context.Context, giftID string, p Patch) (Gift, error) {
	const op = "gift.Update"

	if s == nil || s.store == nil {
		return Gift{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return Gift{}, err
	}

	rec := UpdateRecord{ID: strings.TrimSpace(giftID), Now: p.Now}
	if rec.ID == "" {
		return Gift{}, errs.NotFound(op, "gift")
	}
	if rec.Now.IsZero() {
		rec.Now = time.Now().UTC()
	}
	if p.PaymentMethod != nil {
		m, ok := ParseMethod(*p.PaymentMethod)
		if !ok {
			return Gift{}, errs.Invalid(op, "payment_method must be cash or khqr")
		}
		rec.PaymentMethod = &m
	}
	if p.Currency != nil {
		c, ok := ParseCurrency(*p.Currency)
		if !ok {
			return Gift{}, errs.Invalid(op, "currency must be khr or usd")
		}
		rec.Currency = &c
	}
	if p.Amount != nil {
		if !p.Amount.Positive() {
			return Gift{}, errs.Invalid(op, "amount must be greater than zero")
		}
		a := *p.Amount
		rec.Amount = &a
	}
	if p.Note != nil {
		note, err := normalizeNote(op, p.Note)
		if err != nil {
			return Gift{}, err
		}
		rec.Note = orEmpty(note)
	}
	if p.ReceiptImage != nil {
		receipt, err := normalizeReceipt(op, p.ReceiptImage)
		if err != nil {
			return Gift{}, err
		}
		rec.ReceiptImage = orEmpty(receipt)
	}

	return s.store.Update(ctx, rec)
}

// Remove hard-deletes a gift and returns it so the caller can resync the guest's flag.
func (s *Service) Remove(ctx context.Context, giftID string) (Gift, error) {
	if s == nil || s.store == nil {
		return Gift{}, errs.Invalid("gift.Remove", "nil service")
	}
	giftID = strings.TrimSpace(giftID)
	if giftID == "" {
		return Gift{}, errs.NotFound("gift.Remove", "gift")
	}
	return s.store.Delete(ctx, giftID)
}

// RemoveByGuest deletes all gifts of a guest.
func (s *Service) RemoveByGuest(ctx context.Context, guestID string) (int, error) {
	if s == nil || s.store == nil {
		return 0, errs.Invalid("gift.RemoveByGuest", "nil service")
	}
	return s.store.DeleteByGuest(ctx, strings.TrimSpace(guestID))
}

// Get fetches a gift by id.
func (s *Service) Get(ctx context.Context, giftID string) (Gift, error) {
	if s == nil || s.store == nil {
		return Gift{}, errs.Invalid("gift.Get", "nil service")
	}
	giftID = strings.TrimSpace(giftID)
	if giftID == "" {
		return Gift{}, errs.NotFound("gift.Get", "gift")
	}
	return s.store.Get(ctx, giftID)
}

// ListByGuest returns a guest's gifts, newest first.
func (s *Service) ListByGuest(ctx context.Context, guestID string) ([]Gift, error) {
	if s == nil || s.store == nil {
		return nil, errs.Invalid("gift.ListByGuest", "nil service")
	}
	return s.store.ListByGuest(ctx, strings.TrimSpace(guestID))
}

// ListByEvent returns an event's gifts, newest first.
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]Gift, error) {
	if s == nil || s.store == nil {
		return nil, errs.Invalid("gift.ListByEvent", "nil service")
	}
	return s.store.ListByEvent(ctx, strings.TrimSpace(eventID))
}

// CountByGuest counts a guest's gifts.
func (s *Service) CountByGuest(ctx context.Context, guestID string) (int, error) {
	if s == nil || s.store == nil {
		return 0, errs.Invalid("gift.CountByGuest", "nil service")
	}
	return s.store.CountByGuest(ctx, strings.TrimSpace(guestID))
}

func normalizeNote(op string, p *string) (*string, error) {
	note := storage.TrimPtr(p)
	if note != nil && len(*note) > maxNoteLen {
		return nil, errs.Invalid(op, "note is too long")
	}
	return note, nil
}

func normalizeReceipt(op string, p *string) (*string, error) {
	raw := storage.TrimPtr(p)
	if raw == nil {
		return nil, nil
	}
	if len(*raw) > maxURLLen {
		return nil, errs.Invalid(op, "receipt_image is too long")
	}
	u, err := url.Parse(*raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.Invalid(op, "receipt_image must be an absolute http(s) URL")
	}
	return raw, nil
}

// orEmpty turns a cleared value into an explicit "" so the store nulls the column.
func orEmpty(p *string) *string {
	if p == nil {
		empty := ""
		return &empty
	}
	return p
}
