// Package api is the HTTP surface of guestlist: host and requester routes behind
// operator auth, and the public token-addressed /invite routes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"guestlist/cmd/internal/auth"
	"guestlist/cmd/internal/directory"
	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/gift"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/invitation"
	"guestlist/cmd/internal/invite"
	"guestlist/cmd/internal/metrics"
	"guestlist/cmd/internal/realtime"

	"github.com/go-chi/chi/v5"
)

// RequestIDHeader carries the per-request id set by the request-id middleware.
const RequestIDHeader = "X-Request-ID"

// Deps are the services the handler routes to.
type Deps struct {
	Invitations *invitation.Service
	Guests      *guest.Service
	Gifts       *gift.Service
	Invites     *invite.Service
	Directory   directory.Directory
	Auth        auth.Authenticator
	Metrics     *metrics.Metrics

	// Live is optional; without it the live route is not mounted.
	Live *realtime.Gateway
}

// Handler wires HTTP endpoints to the domain services.
type Handler struct {
	log *slog.Logger
	cfg Config

	invitations *invitation.Service
	guests      *guest.Service
	gifts       *gift.Service
	invites     *invite.Service
	dir         directory.Directory
	auth        auth.Authenticator
	metrics     *metrics.Metrics
	live        *realtime.Gateway
	hub         *realtime.Hub

	limiter *ipLimiter
	now     func() time.Time
}

// NewHandler constructs a Handler. Every service in deps is required; Metrics may be nil.
func NewHandler(log *slog.Logger, cfg Config, deps Deps) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	switch {
	case deps.Invitations == nil:
		return nil, errors.New("api: nil invitation service")
	case deps.Guests == nil:
		return nil, errors.New("api: nil guest service")
	case deps.Gifts == nil:
		return nil, errors.New("api: nil gift service")
	case deps.Invites == nil:
		return nil, errors.New("api: nil invite service")
	case deps.Directory == nil:
		return nil, errors.New("api: nil directory")
	case deps.Auth == nil:
		return nil, errors.New("api: nil authenticator")
	}

	cfg = cfg.normalize()
	return &Handler{
		log:         log,
		cfg:         cfg,
		invitations: deps.Invitations,
		guests:      deps.Guests,
		gifts:       deps.Gifts,
		invites:     deps.Invites,
		dir:         deps.Directory,
		auth:        deps.Auth,
		metrics:     deps.Metrics,
		live:        deps.Live,
		hub:         deps.Live.Hub(),
		limiter:     newIPLimiter(cfg.InviteRateLimit, cfg.InviteRateWindow),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Routes mounts every API route on r.
func (h *Handler) Routes(r chi.Router) {
	if h == nil || r == nil {
		return
	}

	r.Route("/invite", func(r chi.Router) {
		r.Post("/guest/{guestId}/regenerate-token", h.requireActor(h.handleRegenerateToken))
		r.Get("/{token}", h.handleInviteRender)
		r.Get("/{token}/track/open", h.handleTrackOpen)
		r.Post("/{token}/track/click", h.handleTrackClick)
		r.Post("/{token}/rsvp", h.handleRSVP)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/invitations", h.handleInvitationCreate)
		r.Get("/invitations", h.handleInvitationList)
		r.Get("/invitations/{id}", h.handleInvitationGet)
		r.Patch("/invitations/{id}/status", h.handleInvitationStatus)
		r.Post("/invitations/{id}/materialize", h.handleInvitationMaterialize)
		r.Delete("/invitations/{id}", h.handleInvitationDelete)

		r.Post("/events/{eventId}/guests", h.handleGuestCreate)
		r.Get("/events/{eventId}/guests", h.handleGuestList)
		r.Get("/guests/{guestId}", h.handleGuestGet)
		r.Delete("/guests/{guestId}", h.handleGuestDelete)

		r.Post("/guests/{guestId}/gifts", h.handleGiftCreate)
		r.Get("/guests/{guestId}/gifts", h.handleGiftListByGuest)
		r.Get("/events/{eventId}/gifts", h.handleGiftListByEvent)
		r.Get("/gifts/{giftId}", h.handleGiftGet)
		r.Patch("/gifts/{giftId}", h.handleGiftUpdate)
		r.Delete("/gifts/{giftId}", h.handleGiftDelete)

		if h.live != nil {
			r.Get("/events/{eventId}/live", h.handleLive)
		}
	})
}

// authenticate resolves the operator and stores the principal on the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.auth.Authenticate(r)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				h.log.Warn("auth.verify.fail", "request_id", requestID(r), "err", err)
			}
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

func (h *Handler) requireActor(fn http.HandlerFunc) http.HandlerFunc {
	return h.authenticate(fn).ServeHTTP
}

func actorID(r *http.Request) string {
	p, _ := auth.FromContext(r.Context())
	return p.UserID
}

// requireHost loads the event and checks that actor hosts it.
func (h *Handler) requireHost(ctx context.Context, op, eventID, actor string) (directory.Event, error) {
	ev, err := h.dir.GetEvent(ctx, eventID)
	if err != nil {
		return directory.Event{}, err
	}
	if !ev.IsHost(actor) {
		return directory.Event{}, errs.Forbidden(op, "only the event host may do this")
	}
	return ev, nil
}

// guestForHost loads a guest and checks that actor hosts its event.
func (h *Handler) guestForHost(ctx context.Context, op, guestID, actor string) (guest.Guest, error) {
	g, err := h.guests.Get(ctx, guestID)
	if err != nil {
		return guest.Guest{}, err
	}
	if _, err := h.requireHost(ctx, op, g.EventID, actor); err != nil {
		return guest.Guest{}, err
	}
	return g, nil
}

// syncGiftFlag recomputes has_given_gift from the guest's gift count. Failures are
// logged; the gift write itself already committed.
func (h *Handler) syncGiftFlag(ctx context.Context, r *http.Request, guestID string) {
	n, err := h.gifts.CountByGuest(ctx, guestID)
	if err == nil {
		err = h.guests.SyncGiftFlag(ctx, guestID, n)
	}
	if err != nil && !errs.IsNotFound(err) {
		h.log.LogAttrs(ctx, slog.LevelWarn, "gift.flag.sync.fail",
			slog.String("request_id", requestID(r)),
			slog.String("guest_id", guestID),
			slog.Any("err", err),
		)
	}
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
