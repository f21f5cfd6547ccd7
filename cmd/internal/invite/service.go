// Package invite is the public, token-authenticated invite surface: render data, open/click
// telemetry, RSVP and host-driven token rotation.
//
// Invite tokens are bearer secrets. They are never logged; log lines carry token.Fingerprint.
package invite

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"guestlist/cmd/internal/directory"
	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/metrics"
	"guestlist/cmd/internal/realtime"
	"guestlist/cmd/internal/storage"
	"guestlist/cmd/security/token"
)

const maxRSVPMessageLen = 2000

// View is everything a renderer needs for one invitation page.
type View struct {
	Event    directory.Event
	Guest    guest.Guest
	Template *directory.Template
	Assets   directory.AssetSet
}

// RSVPInput is a guest's response submitted with their token.
type RSVPInput struct {
	Token   string
	Status  string
	Message *string
	Now     time.Time
}

// Service resolves invite tokens against the guest store and the directory.
type Service struct {
	guests   guest.Store
	dir      directory.Directory
	log      *slog.Logger
	metrics  *metrics.Metrics
	live     *realtime.Hub
	newToken func() (string, error)
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service) error

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) error {
		if l == nil {
			return errs.ErrInvalidInput
		}
		s.log = l
		return nil
	}
}

// WithMetrics records tracking and RSVP counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// WithLiveFeed publishes first opens/clicks, RSVPs and rotations to hosts watching the event.
func WithLiveFeed(h *realtime.Hub) Option {
	return func(s *Service) error {
		s.live = h
		return nil
	}
}

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
func NewService(guests guest.Store, dir directory.Directory, opts ...Option) (*Service, error) {
	if guests == nil || dir == nil {
		return nil, errs.ErrInvalidInput
	}
	s := &Service{
		guests:   guests,
		dir:      dir,
		log:      slog.Default(),
		newToken: token.NewInviteToken,
		now:      func() time.Time { return time.Now().UTC() },
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

// RenderData resolves a token to its guest, event, template and merged assets.
// A missing template is not an error; the base asset set is then empty.
func (s *Service) RenderData(ctx context.Context, tok string) (View, error) {
	const op = "invite.RenderData"

	if s == nil || s.guests == nil {
		return View{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return View{}, err
	}

	g, err := s.resolve(ctx, op, tok)
	if err != nil {
		return View{}, err
	}
	ev, err := s.dir.GetEvent(ctx, g.EventID)
	if err != nil {
		if errs.IsNotFound(err) {
			s.log.Warn("invite.render.event.missing", "guest_id", g.ID, "event_id", g.EventID)
			return View{}, errUnknownInvite(op)
		}
		return View{}, err
	}

	view := View{Event: ev, Guest: g}
	var base directory.AssetSet
	if slug := storage.TrimPtr(ev.TemplateSlug); slug != nil {
		tpl, err := s.dir.GetTemplate(ctx, *slug)
		switch {
		case err == nil:
			view.Template = &tpl
			base = tpl.Assets.Project()
		case errs.IsNotFound(err):
			s.log.Debug("invite.render.template.missing", "event_id", ev.ID, "template_slug", *slug)
		default:
			return View{}, err
		}
	}
	view.Assets = directory.MergeAssets(base, ev.UserTemplateConfig)
	return view, nil
}

// TrackOpen records the first open of an invite. It never fails the caller.
func (s *Service) TrackOpen(ctx context.Context, tok string) {
	s.track(ctx, "open", tok)
}

// TrackClick records the first click-through of an invite. It never fails the caller.
func (s *Service) TrackClick(ctx context.Context, tok string) {
	s.track(ctx, "click", tok)
}

func (s *Service) track(ctx context.Context, kind, tok string) {
	if s == nil || s.guests == nil {
		return
	}
	tok = strings.TrimSpace(tok)
	if !token.LooksValid(tok) {
		s.metrics.Tracked(kind, metrics.TrackUnknown)
		return
	}

	mark := s.guests.MarkOpened
	if kind == "click" {
		mark = s.guests.MarkClicked
	}
	now := s.now()
	changed, err := mark(ctx, tok, now)
	if err != nil {
		s.metrics.Tracked(kind, metrics.TrackError)
		s.log.Error("invite.track.fail", "kind", kind, "token_fp", token.Fingerprint(tok), "err", err)
		return
	}
	if changed {
		s.metrics.Tracked(kind, metrics.TrackRecorded)
		s.log.Info("invite.track.first", "kind", kind, "token_fp", token.Fingerprint(tok))
		s.publishTracked(ctx, kind, tok, now)
		return
	}
	s.metrics.Tracked(kind, metrics.TrackRepeat)
}

// SubmitRSVP stores the guest's response. Repeated submissions overwrite the previous one;
// notes change only when a message is given.
func (s *Service) SubmitRSVP(ctx context.Context, in RSVPInput) (guest.Guest, error) {
	const op = "invite.SubmitRSVP"

	if s == nil || s.guests == nil {
		return guest.Guest{}, errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return guest.Guest{}, err
	}

	tok := strings.TrimSpace(in.Token)
	if !token.LooksValid(tok) {
		return guest.Guest{}, errUnknownInvite(op)
	}
	status, ok := guest.ParseStatus(in.Status)
	if !ok {
		return guest.Guest{}, errs.Invalid(op, "status must be pending, confirmed or declined")
	}
	msg := storage.TrimPtr(in.Message)
	if msg != nil && len(*msg) > maxRSVPMessageLen {
		return guest.Guest{}, errs.Invalid(op, "message is too long")
	}
	now := in.Now
	if now.IsZero() {
		now = s.now()
	}

	g, err := s.guests.UpdateRSVP(ctx, guest.RSVPRecord{Token: tok, Status: status, Notes: msg, Now: now})
	if err != nil {
		if errs.IsNotFound(err) {
			return guest.Guest{}, errUnknownInvite(op)
		}
		return guest.Guest{}, err
	}
	s.metrics.RSVPSubmitted(string(status))
	s.log.Info("invite.rsvp", "guest_id", g.ID, "status", string(status), "token_fp", token.Fingerprint(tok))
	s.live.Publish(realtime.Activity{
		Type:    realtime.TypeGuestRSVP,
		EventID: g.EventID,
		GuestID: g.ID,
		Status:  string(g.Status),
		At:      now,
	})
	return g, nil
}

// RegenerateToken replaces a guest's invite token on behalf of the event host and returns
// the new token. The previous token stops resolving immediately.
func (s *Service) RegenerateToken(ctx context.Context, guestID, actorID string) (string, error) {
	const op = "invite.RegenerateToken"

	if s == nil || s.guests == nil {
		return "", errs.Invalid(op, "nil service")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return "", errs.NotFound(op, "guest")
	}
	g, err := s.guests.Get(ctx, guestID)
	if err != nil {
		return "", err
	}
	ev, err := s.dir.GetEvent(ctx, g.EventID)
	if err != nil {
		return "", err
	}
	if !ev.IsHost(strings.TrimSpace(actorID)) {
		return "", errs.Forbidden(op, "only the event host may regenerate tokens")
	}

	for attempt := 0; ; attempt++ {
		fresh, err := s.newToken()
		if err != nil {
			return "", err
		}
		updated, err := s.guests.RotateToken(ctx, g.ID, fresh, s.now())
		if err == nil {
			s.metrics.TokenRotated()
			s.log.Info("invite.token.rotate",
				"guest_id", updated.ID,
				"old_token_fp", token.Fingerprint(g.InviteToken),
				"token_fp", token.Fingerprint(fresh),
			)
			s.live.Publish(realtime.Activity{
				Type:    realtime.TypeTokenRotated,
				EventID: updated.EventID,
				GuestID: updated.ID,
				At:      s.now(),
			})
			return updated.InviteToken, nil
		}
		if attempt == 0 && errs.IsConflictOn(err, guest.ConflictInviteToken) {
			continue
		}
		return "", err
	}
}

func (s *Service) publishTracked(ctx context.Context, kind, tok string, at time.Time) {
	if s.live == nil {
		return
	}
	g, err := s.guests.GetByToken(ctx, tok)
	if err != nil {
		s.log.Debug("invite.track.live.skip", "kind", kind, "token_fp", token.Fingerprint(tok), "err", err)
		return
	}
	typ := realtime.TypeGuestOpened
	if kind == "click" {
		typ = realtime.TypeGuestClicked
	}
	s.live.Publish(realtime.Activity{Type: typ, EventID: g.EventID, GuestID: g.ID, At: at})
}

func (s *Service) resolve(ctx context.Context, op, tok string) (guest.Guest, error) {
	tok = strings.TrimSpace(tok)
	if !token.LooksValid(tok) {
		return guest.Guest{}, errUnknownInvite(op)
	}
	g, err := s.guests.GetByToken(ctx, tok)
	if err != nil {
		if errs.IsNotFound(err) {
			return guest.Guest{}, errUnknownInvite(op)
		}
		return guest.Guest{}, err
	}
	return g, nil
}
