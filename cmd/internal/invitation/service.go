package invitation

import (
	"context"
	"errors"
	"strings"
	"time"

	"guestlist/cmd/internal/directory"
	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/ids"
	"guestlist/cmd/internal/storage"
)

// Guests is the slice of the guest service approval depends on.
type Guests interface {
	Create(ctx context.Context, in guest.CreateInput) (guest.Guest, error)
	GetByEventUser(ctx context.Context, eventID, userID string) (guest.Guest, error)
}

// Lookup is the slice of the directory the lifecycle needs.
type Lookup interface {
	directory.Events
	directory.Users
}

// Service owns the invitation state machine.
type Service struct {
	store  Store
	dir    Lookup
	guests Guests
	now    func() time.Time
}

// Option configures the Service.
type Option func(*Service) error

// WithClock overrides the time source (tests only).
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return errs.ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// NewService constructs a Service.
func NewService(store Store, dir Lookup, guests Guests, opts ...Option) (*Service, error) {
	if store == nil || dir == nil || guests == nil {
		return nil, errs.ErrInvalidInput
	}
	s := &Service{
		store:  store,
		dir:    dir,
		guests: guests,
		now:    func() time.Time { return time.Now().UTC() },
	}
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

func (s *Service) clock(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// Create records a pending request by in.UserID to attend in.EventID.
func (s *Service) Create(ctx context.Context, in CreateInput) (Invitation, error) {
	const op = "invitation.Create"

	if s == nil || s.store == nil {
		return Invitation{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}

	eventID := strings.TrimSpace(in.EventID)
	userID := strings.TrimSpace(in.UserID)
	if eventID == "" {
		return Invitation{}, errs.Invalid(op, "event_id is required")
	}
	if userID == "" {
		return Invitation{}, errs.Invalid(op, "user_id is required")
	}
	msg := storage.TrimPtr(in.Message)
	if msg != nil && len(*msg) > maxMessageLen {
		return Invitation{}, errs.Invalid(op, "message is too long")
	}

	if _, err := s.dir.GetEvent(ctx, eventID); err != nil {
		return Invitation{}, err
	}
	if _, err := s.dir.GetUser(ctx, userID); err != nil {
		return Invitation{}, err
	}

	now := s.clock(in.Now)
	id, err := ids.New(now)
	if err != nil {
		return Invitation{}, err
	}

	return s.store.Create(ctx, CreateRecord{
		ID:        id,
		EventID:   eventID,
		UserID:    userID,
		Message:   msg,
		CreatedAt: now,
	})
}

// Get fetches an invitation by id.
func (s *Service) Get(ctx context.Context, id string) (Invitation, error) {
	if s == nil || s.store == nil {
		return Invitation{}, errs.Invalid("invitation.Get", "nil service")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Invitation{}, errs.NotFound("invitation.Get", "invitation")
	}
	return s.store.Get(ctx, id)
}

// UpdateStatus applies the host's response to a pending invitation.
//
// On approval a confirmed guest is materialized for the requester. An existing guest for
// the same (event, user) counts as success. Any other materialization failure is returned
// as *MaterializeError together with the already committed invitation.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (Invitation, error) {
	const op = "invitation.UpdateStatus"

	if s == nil || s.store == nil {
		return Invitation{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return Invitation{}, err
	}

	inv, _, err := s.loadForHost(ctx, op, in.InvitationID, in.ActorID)
	if err != nil {
		return Invitation{}, err
	}

	to, ok := ParseStatus(string(in.Status))
	if !ok || !to.Terminal() {
		return Invitation{}, errs.Invalid(op, "status must be approved or declined")
	}
	if inv.Status != StatusPending {
		return Invitation{}, errs.Invalid(op, "invitation already responded")
	}

	now := s.clock(in.Now)
	updated, err := s.store.Transition(ctx, TransitionRecord{ID: inv.ID, To: to, Now: now})
	if err != nil {
		if errors.Is(err, errNotPending) {
			return Invitation{}, errs.Invalid(op, "invitation already responded")
		}
		return Invitation{}, err
	}

	if updated.Status != StatusApproved {
		return updated, nil
	}
	if _, err := s.materialize(ctx, updated, now); err != nil {
		return updated, &MaterializeError{InvitationID: updated.ID, Err: err}
	}
	return updated, nil
}

// Materialize re-runs guest creation for an approved invitation and returns the guest.
// It is idempotent: an existing guest for the requester is returned as is.
func (s *Service) Materialize(ctx context.Context, invitationID, actorID string) (guest.Guest, error) {
	const op = "invitation.Materialize"

	if s == nil || s.store == nil {
		return guest.Guest{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return guest.Guest{}, err
	}

	inv, _, err := s.loadForHost(ctx, op, invitationID, actorID)
	if err != nil {
		return guest.Guest{}, err
	}
	if inv.Status != StatusApproved {
		return guest.Guest{}, errs.Invalid(op, "invitation is not approved")
	}
	return s.materialize(ctx, inv, s.now())
}

func (s *Service) materialize(ctx context.Context, inv Invitation, now time.Time) (guest.Guest, error) {
	user, err := s.dir.GetUser(ctx, inv.UserID)
	if err != nil {
		return guest.Guest{}, err
	}
	userID := inv.UserID
	g, err := s.guests.Create(ctx, guest.CreateInput{
		EventID: inv.EventID,
		UserID:  &userID,
		Name:    user.Name,
		Email:   user.Email,
		Phone:   user.Phone,
		Status:  guest.StatusConfirmed,
		Now:     now,
	})
	if err == nil {
		return g, nil
	}
	if errs.IsConflictOn(err, guest.ConflictEventUser) {
		return s.guests.GetByEventUser(ctx, inv.EventID, inv.UserID)
	}
	return guest.Guest{}, err
}

// Remove deletes an invitation on behalf of its requester or the event host.
func (s *Service) Remove(ctx context.Context, invitationID, actorID string) error {
	const op = "invitation.Remove"

	if s == nil || s.store == nil {
		return errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	inv, err := s.Get(ctx, invitationID)
	if err != nil {
		return err
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return errs.Forbidden(op, "missing actor")
	}
	if inv.UserID != actorID {
		ev, err := s.dir.GetEvent(ctx, inv.EventID)
		if err != nil {
			return err
		}
		if !ev.IsHost(actorID) {
			return errs.Forbidden(op, "only the requester or the host may remove an invitation")
		}
	}
	return s.store.Delete(ctx, inv.ID)
}

// List returns a filtered page of invitations, newest first.
func (s *Service) List(ctx context.Context, f Filter, p Page) (ListResult, error) {
	const op = "invitation.List"

	if s == nil || s.store == nil {
		return ListResult{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return ListResult{}, err
	}

	f.EventID = strings.TrimSpace(f.EventID)
	f.UserID = strings.TrimSpace(f.UserID)
	if f.Status != "" {
		st, ok := ParseStatus(string(f.Status))
		if !ok {
			return ListResult{}, errs.Invalid(op, "unknown status")
		}
		f.Status = st
	}
	p = p.Normalize()
	if p.Number > maxPage {
		return ListResult{}, errs.Invalid(op, "page is out of range")
	}

	items, total, err := s.store.List(ctx, f, p.Size, p.Offset())
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: p.Number, PageSize: p.Size}, nil
}

// loadForHost resolves the invitation and its event and checks that actorID hosts it.
func (s *Service) loadForHost(ctx context.Context, op, invitationID, actorID string) (Invitation, directory.Event, error) {
	inv, err := s.Get(ctx, invitationID)
	if err != nil {
		return Invitation{}, directory.Event{}, err
	}
	ev, err := s.dir.GetEvent(ctx, inv.EventID)
	if err != nil {
		return Invitation{}, directory.Event{}, err
	}
	if !ev.IsHost(strings.TrimSpace(actorID)) {
		return Invitation{}, directory.Event{}, errs.Forbidden(op, "only the event host may respond")
	}
	return inv, ev, nil
}
