package api

import (
	"net/http"

	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/realtime"
)

func (h *Handler) handleGuestCreate(w http.ResponseWriter, r *http.Request) {
	const op = "guest.Create"

	eventID := pathParam(r, "eventId")
	if _, err := h.requireHost(r.Context(), op, eventID, actorID(r)); err != nil {
		h.writeServiceError(w, r, "guest.create", err)
		return
	}

	var req guestCreateRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	g, err := h.guests.Create(r.Context(), guest.CreateInput{
		EventID: eventID,
		UserID:  req.UserID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Status:  guest.Status(req.Status),
		Notes:   req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, "guest.create", err)
		return
	}
	h.log.Info("guest.create", "request_id", requestID(r), "guest_id", g.ID, "event_id", g.EventID)
	h.publish(realtime.TypeGuestCreated, g.EventID, func(a *realtime.Activity) { a.GuestID = g.ID })
	writeJSON(w, http.StatusCreated, toGuestResponse(g))
}

func (h *Handler) handleGuestList(w http.ResponseWriter, r *http.Request) {
	const op = "guest.ListByEvent"

	eventID := pathParam(r, "eventId")
	if _, err := h.requireHost(r.Context(), op, eventID, actorID(r)); err != nil {
		h.writeServiceError(w, r, "guest.list", err)
		return
	}
	list, err := h.guests.ListByEvent(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, r, "guest.list", err)
		return
	}
	items := make([]guestResponse, 0, len(list))
	for _, g := range list {
		items = append(items, toGuestResponse(g))
	}
	writeJSON(w, http.StatusOK, guestListResponse{Items: items})
}

func (h *Handler) handleGuestGet(w http.ResponseWriter, r *http.Request) {
	g, err := h.guestForHost(r.Context(), "guest.Get", pathParam(r, "guestId"), actorID(r))
	if err != nil {
		h.writeServiceError(w, r, "guest.get", err)
		return
	}
	writeJSON(w, http.StatusOK, toGuestResponse(g))
}

func (h *Handler) handleGuestDelete(w http.ResponseWriter, r *http.Request) {
	g, err := h.guestForHost(r.Context(), "guest.Delete", pathParam(r, "guestId"), actorID(r))
	if err != nil {
		h.writeServiceError(w, r, "guest.delete", err)
		return
	}
	// Postgres cascades; the memory backend needs the gifts dropped explicitly.
	if _, err := h.gifts.RemoveByGuest(r.Context(), g.ID); err != nil {
		h.writeServiceError(w, r, "guest.delete", err)
		return
	}
	if err := h.guests.Delete(r.Context(), g.ID); err != nil {
		h.writeServiceError(w, r, "guest.delete", err)
		return
	}
	h.log.Info("guest.delete", "request_id", requestID(r), "guest_id", g.ID, "event_id", g.EventID)
	h.publish(realtime.TypeGuestRemoved, g.EventID, func(a *realtime.Activity) { a.GuestID = g.ID })
	writeJSON(w, http.StatusOK, deletedResponse{ID: g.ID, Deleted: true})
}
