package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"guestlist/cmd/internal/errs"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

func writeBadJSON(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
}

// writeServiceError maps the errs taxonomy onto status codes. Unknown errors are logged
// under event and answered with a generic 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, event string, err error) {
	switch {
	case errs.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", notFoundMessage(err))
	case errs.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", conflictMessage(err))
	case errs.IsForbidden(err):
		writeError(w, http.StatusForbidden, "forbidden", opMessage(err, "forbidden"))
	case errs.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "bad_request", opMessage(err, "invalid input"))
	case errors.Is(err, context.Canceled):
		h.log.Debug(event+".canceled", "request_id", requestID(r))
		writeError(w, http.StatusServiceUnavailable, "canceled", "request canceled")
	default:
		h.log.LogAttrs(r.Context(), slog.LevelError, event+".fail",
			slog.String("request_id", requestID(r)),
			slog.Any("err", err),
		)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func notFoundMessage(err error) string {
	var nf errs.NotFoundError
	if errors.As(err, &nf) && nf.Resource != "" {
		return nf.Resource + " not found"
	}
	return "not found"
}

func conflictMessage(err error) string {
	var ce errs.ConflictError
	if errors.As(err, &ce) {
		switch ce.Field {
		case "event_user":
			return "already exists for this event and user"
		case "":
		default:
			return "conflict on " + ce.Field
		}
	}
	return "conflict"
}

func opMessage(err error, fallback string) string {
	var oe errs.OpError
	if errors.As(err, &oe) && oe.Msg != "" {
		return oe.Msg
	}
	return fallback
}

func requestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(RequestIDHeader)
}
