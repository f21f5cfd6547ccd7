package api

import (
	"net/http"

	"guestlist/cmd/internal/invite"
	"guestlist/cmd/internal/metrics"
)

// transparentGIF is a 1x1 transparent GIF89a used as the open-tracking pixel.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// allowInvite applies the per-IP limit to a public invite route.
func (h *Handler) allowInvite(w http.ResponseWriter, r *http.Request, route string) bool {
	ok, retry := h.limiter.Allow(clientKey(r, h.cfg.TrustProxy), h.now())
	if ok {
		return true
	}
	h.metrics.RateLimited(route)
	writeRateLimited(w, retry)
	return false
}

func (h *Handler) handleInviteRender(w http.ResponseWriter, r *http.Request) {
	if !h.allowInvite(w, r, "render") {
		return
	}
	view, err := h.invites.RenderData(r.Context(), chiToken(r))
	if err != nil {
		h.writeServiceError(w, r, "invite.render", err)
		return
	}
	writeJSON(w, http.StatusOK, toRenderResponse(view))
}

func (h *Handler) handleTrackOpen(w http.ResponseWriter, r *http.Request) {
	h.track(r, "open")
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}

func (h *Handler) handleTrackClick(w http.ResponseWriter, r *http.Request) {
	h.track(r, "click")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// track records telemetry unless the caller is over the limit. The caller always
// answers 200 either way.
func (h *Handler) track(r *http.Request, kind string) {
	if ok, _ := h.limiter.Allow(clientKey(r, h.cfg.TrustProxy), h.now()); !ok {
		h.metrics.Tracked(kind, metrics.TrackLimited)
		return
	}
	if kind == "click" {
		h.invites.TrackClick(r.Context(), chiToken(r))
		return
	}
	h.invites.TrackOpen(r.Context(), chiToken(r))
}

func (h *Handler) handleRSVP(w http.ResponseWriter, r *http.Request) {
	if !h.allowInvite(w, r, "rsvp") {
		return
	}
	var req rsvpRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	g, err := h.invites.SubmitRSVP(r.Context(), invite.RSVPInput{
		Token:   chiToken(r),
		Status:  req.Status,
		Message: req.Message,
	})
	if err != nil {
		h.writeServiceError(w, r, "invite.rsvp", err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicGuestResponse(g))
}

func (h *Handler) handleRegenerateToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.invites.RegenerateToken(r.Context(), pathParam(r, "guestId"), actorID(r))
	if err != nil {
		h.writeServiceError(w, r, "invite.regenerate", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok})
}

func chiToken(r *http.Request) string {
	return pathParam(r, "token")
}

func toRenderResponse(v invite.View) renderResponse {
	out := renderResponse{
		Event:  toEventResponse(v.Event),
		Guest:  toPublicGuestResponse(v.Guest),
		Assets: v.Assets,
	}
	if v.Template != nil {
		out.Template = &templateResponse{Slug: v.Template.Slug, Name: v.Template.Name}
	}
	return out
}
