package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/invitation"
	"guestlist/cmd/internal/realtime"
)

func (h *Handler) handleInvitationCreate(w http.ResponseWriter, r *http.Request) {
	var req invitationCreateRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	actor := actorID(r)
	if req.UserID != nil && strings.TrimSpace(*req.UserID) != actor {
		h.writeServiceError(w, r, "invitation.create",
			errs.Forbidden("invitation.Create", "invitations can only be requested for yourself"))
		return
	}

	inv, err := h.invitations.Create(r.Context(), invitation.CreateInput{
		EventID: req.EventID,
		UserID:  actor,
		Message: req.Message,
	})
	if err != nil {
		h.writeServiceError(w, r, "invitation.create", err)
		return
	}
	h.publish(realtime.TypeInvitationCreated, inv.EventID, func(a *realtime.Activity) {
		a.InvitationID = inv.ID
		a.Status = string(inv.Status)
	})
	writeJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

func (h *Handler) handleInvitationGet(w http.ResponseWriter, r *http.Request) {
	const op = "invitation.Get"

	inv, err := h.invitations.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "invitation.get", err)
		return
	}
	actor := actorID(r)
	if inv.UserID != actor {
		if _, err := h.requireHost(r.Context(), op, inv.EventID, actor); err != nil {
			h.writeServiceError(w, r, "invitation.get", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}

func (h *Handler) handleInvitationList(w http.ResponseWriter, r *http.Request) {
	const op = "invitation.List"

	q := r.URL.Query()
	page, ok := queryInt(q.Get("page"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "page must be a positive integer")
		return
	}
	size, ok := queryInt(q.Get("page_size"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "page_size must be a positive integer")
		return
	}
	expandEvent, expandUser, ok := parseExpand(q.Get("expand"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "expand accepts event,user")
		return
	}

	f := invitation.Filter{
		EventID: strings.TrimSpace(q.Get("event_id")),
		UserID:  strings.TrimSpace(q.Get("user_id")),
		Status:  invitation.Status(strings.TrimSpace(q.Get("status"))),
	}

	// Hosts see every invitation for their event; anyone else only sees their own.
	actor := actorID(r)
	isHost := false
	if f.EventID != "" {
		ev, err := h.dir.GetEvent(r.Context(), f.EventID)
		if err != nil {
			h.writeServiceError(w, r, "invitation.list", err)
			return
		}
		isHost = ev.IsHost(actor)
	}
	if !isHost {
		if f.UserID != "" && f.UserID != actor {
			h.writeServiceError(w, r, "invitation.list", errs.Forbidden(op, "cannot list other users' invitations"))
			return
		}
		f.UserID = actor
	}

	res, err := h.invitations.List(r.Context(), f, invitation.Page{Number: page, Size: size})
	if err != nil {
		h.writeServiceError(w, r, "invitation.list", err)
		return
	}

	items := make([]invitationResponse, 0, len(res.Items))
	exp := newExpander(h, r)
	for _, inv := range res.Items {
		out := toInvitationResponse(inv)
		if expandEvent {
			out.Event = exp.event(r.Context(), inv.EventID)
		}
		if expandUser {
			out.User = exp.user(r.Context(), inv.UserID)
		}
		items = append(items, out)
	}

	writeJSON(w, http.StatusOK, invitationListResponse{
		Items:    items,
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
	})
}

func (h *Handler) handleInvitationStatus(w http.ResponseWriter, r *http.Request) {
	var req invitationStatusRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	inv, err := h.invitations.UpdateStatus(r.Context(), invitation.UpdateStatusInput{
		InvitationID: pathParam(r, "id"),
		Status:       invitation.Status(req.Status),
		ActorID:      actorID(r),
	})
	if err != nil {
		var merr *invitation.MaterializeError
		if !errors.As(err, &merr) {
			h.writeServiceError(w, r, "invitation.status", err)
			return
		}
		// The status change committed; only the guest row is missing. The host can
		// retry through the materialize endpoint.
		h.metrics.InvitationResponded(string(inv.Status))
		h.metrics.MaterializeFailed()
		h.log.LogAttrs(r.Context(), slog.LevelError, "invitation.approve.guest.fail",
			slog.String("request_id", requestID(r)),
			slog.String("invitation_id", merr.InvitationID),
			slog.Any("err", merr.Err),
		)
		h.publishResponded(inv)
		out := toInvitationResponse(inv)
		materialized := false
		out.GuestMaterialized = &materialized
		writeJSON(w, http.StatusOK, out)
		return
	}

	h.metrics.InvitationResponded(string(inv.Status))
	h.publishResponded(inv)
	out := toInvitationResponse(inv)
	if inv.Status == invitation.StatusApproved {
		materialized := true
		out.GuestMaterialized = &materialized
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) publishResponded(inv invitation.Invitation) {
	h.publish(realtime.TypeInvitationResponse, inv.EventID, func(a *realtime.Activity) {
		a.InvitationID = inv.ID
		a.Status = string(inv.Status)
	})
}

func (h *Handler) handleInvitationMaterialize(w http.ResponseWriter, r *http.Request) {
	g, err := h.invitations.Materialize(r.Context(), pathParam(r, "id"), actorID(r))
	if err != nil {
		h.writeServiceError(w, r, "invitation.materialize", err)
		return
	}
	writeJSON(w, http.StatusOK, toGuestResponse(g))
}

func (h *Handler) handleInvitationDelete(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.invitations.Remove(r.Context(), id, actorID(r)); err != nil {
		h.writeServiceError(w, r, "invitation.delete", err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}

// ---- helpers ----

// queryInt parses an optional positive integer; "" yields 0 (service default).
func queryInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func parseExpand(raw string) (event, user, ok bool) {
	for _, part := range strings.Split(raw, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "event":
			event = true
		case "user":
			user = true
		default:
			return false, false, false
		}
	}
	return event, user, true
}

// expander resolves Ref fields once per id within a single response. A record that
// cannot be resolved stays an id reference.
type expander struct {
	h      *Handler
	r      *http.Request
	events map[string]Ref[eventResponse]
	users  map[string]Ref[userResponse]
}

func newExpander(h *Handler, r *http.Request) *expander {
	return &expander{
		h:      h,
		r:      r,
		events: make(map[string]Ref[eventResponse]),
		users:  make(map[string]Ref[userResponse]),
	}
}

func (e *expander) event(ctx context.Context, id string) Ref[eventResponse] {
	if ref, ok := e.events[id]; ok {
		return ref
	}
	ref := RefID[eventResponse](id)
	ev, err := e.h.dir.GetEvent(ctx, id)
	switch {
	case err == nil:
		ref = RefExpanded(id, toEventResponse(ev))
	case !errs.IsNotFound(err):
		e.h.log.Warn("invitation.expand.event.fail", "request_id", requestID(e.r), "event_id", id, "err", err)
	}
	e.events[id] = ref
	return ref
}

func (e *expander) user(ctx context.Context, id string) Ref[userResponse] {
	if ref, ok := e.users[id]; ok {
		return ref
	}
	ref := RefID[userResponse](id)
	u, err := e.h.dir.GetUser(ctx, id)
	switch {
	case err == nil:
		ref = RefExpanded(id, toUserResponse(u))
	case !errs.IsNotFound(err):
		e.h.log.Warn("invitation.expand.user.fail", "request_id", requestID(e.r), "user_id", id, "err", err)
	}
	e.users[id] = ref
	return ref
}
