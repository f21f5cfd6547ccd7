package api

import (
	"net/http"

	"guestlist/cmd/internal/gift"
	"guestlist/cmd/internal/realtime"
)

func (h *Handler) handleGiftCreate(w http.ResponseWriter, r *http.Request) {
	g, err := h.guestForHost(r.Context(), "gift.Create", pathParam(r, "guestId"), actorID(r))
	if err != nil {
		h.writeServiceError(w, r, "gift.create", err)
		return
	}

	var req giftCreateRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	created, err := h.gifts.Create(r.Context(), gift.CreateInput{
		GuestID:       g.ID,
		PaymentMethod: req.PaymentMethod,
		Currency:      req.Currency,
		Amount:        req.Amount,
		Note:          req.Note,
		ReceiptImage:  req.ReceiptImage,
	})
	if err != nil {
		h.writeServiceError(w, r, "gift.create", err)
		return
	}
	h.metrics.GiftRecorded(string(created.Currency), string(created.PaymentMethod))
	h.syncGiftFlag(r.Context(), r, g.ID)
	h.publish(realtime.TypeGiftRecorded, created.EventID, func(a *realtime.Activity) {
		a.GuestID = created.GuestID
		a.GiftID = created.ID
	})
	writeJSON(w, http.StatusCreated, toGiftResponse(created))
}

func (h *Handler) handleGiftListByGuest(w http.ResponseWriter, r *http.Request) {
	g, err := h.guestForHost(r.Context(), "gift.ListByGuest", pathParam(r, "guestId"), actorID(r))
	if err != nil {
		h.writeServiceError(w, r, "gift.list", err)
		return
	}
	list, err := h.gifts.ListByGuest(r.Context(), g.ID)
	if err != nil {
		h.writeServiceError(w, r, "gift.list", err)
		return
	}
	writeJSON(w, http.StatusOK, toGiftList(list))
}

func (h *Handler) handleGiftListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := pathParam(r, "eventId")
	if _, err := h.requireHost(r.Context(), "gift.ListByEvent", eventID, actorID(r)); err != nil {
		h.writeServiceError(w, r, "gift.list", err)
		return
	}
	list, err := h.gifts.ListByEvent(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, r, "gift.list", err)
		return
	}
	writeJSON(w, http.StatusOK, toGiftList(list))
}

func (h *Handler) handleGiftGet(w http.ResponseWriter, r *http.Request) {
	g, err := h.giftForHost(r, "gift.Get")
	if err != nil {
		h.writeServiceError(w, r, "gift.get", err)
		return
	}
	writeJSON(w, http.StatusOK, toGiftResponse(g))
}

func (h *Handler) handleGiftUpdate(w http.ResponseWriter, r *http.Request) {
	g, err := h.giftForHost(r, "gift.Update")
	if err != nil {
		h.writeServiceError(w, r, "gift.update", err)
		return
	}

	var req giftPatchRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	updated, err := h.gifts.Update(r.Context(), g.ID, gift.Patch{
		PaymentMethod: req.PaymentMethod,
		Currency:      req.Currency,
		Amount:        req.Amount,
		Note:          req.Note,
		ReceiptImage:  req.ReceiptImage,
	})
	if err != nil {
		h.writeServiceError(w, r, "gift.update", err)
		return
	}
	writeJSON(w, http.StatusOK, toGiftResponse(updated))
}

func (h *Handler) handleGiftDelete(w http.ResponseWriter, r *http.Request) {
	g, err := h.giftForHost(r, "gift.Remove")
	if err != nil {
		h.writeServiceError(w, r, "gift.delete", err)
		return
	}
	removed, err := h.gifts.Remove(r.Context(), g.ID)
	if err != nil {
		h.writeServiceError(w, r, "gift.delete", err)
		return
	}
	h.syncGiftFlag(r.Context(), r, removed.GuestID)
	h.publish(realtime.TypeGiftRemoved, removed.EventID, func(a *realtime.Activity) {
		a.GuestID = removed.GuestID
		a.GiftID = removed.ID
	})
	writeJSON(w, http.StatusOK, deletedResponse{ID: removed.ID, Deleted: true})
}

// giftForHost loads the gift named in the path and checks that the caller hosts its event.
func (h *Handler) giftForHost(r *http.Request, op string) (gift.Gift, error) {
	g, err := h.gifts.Get(r.Context(), pathParam(r, "giftId"))
	if err != nil {
		return gift.Gift{}, err
	}
	if _, err := h.requireHost(r.Context(), op, g.EventID, actorID(r)); err != nil {
		return gift.Gift{}, err
	}
	return g, nil
}

func toGiftList(list []gift.Gift) giftListResponse {
	items := make([]giftResponse, 0, len(list))
	for _, g := range list {
		items = append(items, toGiftResponse(g))
	}
	return giftListResponse{Items: items}
}
