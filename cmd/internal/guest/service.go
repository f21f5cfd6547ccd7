package guest

import (
	"context"
	"strings"
	"time"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/ids"
	"guestlist/cmd/internal/storage"
	"guestlist/cmd/security/token"
)

// Field names carried by ConflictError from guest stores.
const (
	ConflictEventUser   = "event_user"
	ConflictInviteToken = "invite_token"
)

// Service validates guest input and mints identifiers and invite tokens before
// delegating to the Store.
type Service struct {
	store    Store
	newToken func() (string, error)
}

// Option configures the Service.
type Option func(*Service) error

// WithTokenSource overrides invite-token generation (tests only).
func WithTokenSource(fn func() (string, error)) Option {
	return func(s *Service) error {
		if fn == nil {
			return errs.ErrInvalidInput
		}
		s.newToken = fn
		return nil
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errs.ErrInvalidInput
	}
	s := &Service{store: store, newToken: token.NewInviteToken}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Store returns the underlying store.
func (s *Service) Store() Store { return s.store }

// Create validates in and persists a new guest with a fresh invite token.
// A token collision is retried once with a new token; any other conflict is returned.
func (s *Service) Create(ctx context.Context, in CreateInput) (Guest, error) {
	const op = "guest.Create"

	if s == nil || s.store == nil {
		return Guest{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}

	rec, err := s.normalize(op, in)
	if err != nil {
		return Guest{}, err
	}

	for attempt := 0; ; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			return Guest{}, err
		}
		rec.InviteToken = tok

		g, err := s.store.Create(ctx, rec)
		if err == nil {
			return g, nil
		}
		if attempt == 0 && errs.IsConflictOn(err, ConflictInviteToken) {
			continue
		}
		return Guest{}, err
	}
}

func (s *Service) normalize(op string, in CreateInput) (CreateRecord, error) {
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		return CreateRecord{}, errs.Invalid(op, "event_id is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return CreateRecord{}, errs.Invalid(op, "name is required")
	}
	if len(name) > maxNameLen {
		return CreateRecord{}, errs.Invalid(op, "name is too long")
	}
	notes := storage.TrimPtr(in.Notes)
	if notes != nil && len(*notes) > maxNotesLen {
		return CreateRecord{}, errs.Invalid(op, "notes are too long")
	}

	status := in.Status
	if status == "" {
		status = StatusPending
	}
	status, ok := ParseStatus(string(status))
	if !ok {
		return CreateRecord{}, errs.Invalid(op, "unknown status")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.New(now)
	if err != nil {
		return CreateRecord{}, err
	}

	return CreateRecord{
		ID:        id,
		EventID:   eventID,
		UserID:    storage.TrimPtr(in.UserID),
		Name:      name,
		Email:     storage.TrimPtr(in.Email),
		Phone:     storage.TrimPtr(in.Phone),
		Status:    status,
		Notes:     notes,
		CreatedAt: now,
	}, nil
}

// Get fetches a guest by id.
func (s *Service) Get(ctx context.Context, id string) (Guest, error) {
	if s == nil || s.store == nil {
		return Guest{}, errs.Invalid("guest.Get", "nil service")
	}
	return s.store.Get(ctx, strings.TrimSpace(id))
}

// GetByEventUser fetches the guest materialized for a requester.
func (s *Service) GetByEventUser(ctx context.Context, eventID, userID string) (Guest, error) {
	if s == nil || s.store == nil {
		return Guest{}, errs.Invalid("guest.GetByEventUser", "nil service")
	}
	return s.store.GetByEventUser(ctx, strings.TrimSpace(eventID), strings.TrimSpace(userID))
}

// ListByEvent returns an event's guests, newest first.
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]Guest, error) {
	if s == nil || s.store == nil {
		return nil, errs.Invalid("guest.ListByEvent", "nil service")
	}
	return s.store.ListByEvent(ctx, strings.TrimSpace(eventID))
}

// Delete removes a guest. The Postgres schema cascades to gifts; the memory stores do not,
// so callers remove gifts first.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.store == nil {
		return errs.Invalid("guest.Delete", "nil service")
	}
	return s.store.Delete(ctx, strings.TrimSpace(id))
}

// SyncGiftFlag stores hasGivenGift derived from the guest's current gift count.
func (s *Service) SyncGiftFlag(ctx context.Context, id string, giftCount int) error {
	if s == nil || s.store == nil {
		return errs.Invalid("guest.SyncGiftFlag", "nil service")
	}
	return s.store.SetHasGivenGift(ctx, id, giftCount > 0, time.Now().UTC())
}
