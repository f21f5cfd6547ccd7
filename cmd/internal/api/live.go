package api

import (
	"net/http"

	"guestlist/cmd/internal/realtime"
)

// handleLive upgrades the host's request into the event's live activity feed.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	const op = "api.Live"

	eventID := pathParam(r, "eventId")
	actor := actorID(r)
	if _, err := h.requireHost(r.Context(), op, eventID, actor); err != nil {
		h.writeServiceError(w, r, "live.subscribe", err)
		return
	}
	h.live.Serve(w, r, eventID, actor)
}

// publish is a no-op when the live feed is disabled.
func (h *Handler) publish(typ, eventID string, fill func(*realtime.Activity)) {
	if h.hub == nil {
		return
	}
	a := realtime.Activity{Type: typ, EventID: eventID, At: h.now()}
	if fill != nil {
		fill(&a)
	}
	h.hub.Publish(a)
}

