package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/services"
	"github.com/desertthunder/roomcast/internal/shared"
)

const maxBodyBytes = 1 << 16

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status and the message shown to clients.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrRoomNotFound):
		return http.StatusNotFound, "room not found"
	case errors.Is(err, shared.ErrNotInRoom):
		return http.StatusNotFound, "not in a room"
	case errors.Is(err, shared.ErrNoCredential), errors.Is(err, shared.ErrRefreshFailed):
		return http.StatusNotFound, "not authenticated"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, shared.ErrNoActiveTrack):
		return http.StatusBadRequest, "no active track"
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidState):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, shared.ErrUpstream), errors.Is(err, shared.ErrAuthFailed):
		return http.StatusBadGateway, "spotify request failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError writes err as {"error": ...}. Server-side failures are logged with their cause.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status, msg := statusFor(err)

	if upstream, ok := services.IsUpstream(err); ok {
		logger.Error("upstream failure", "method", upstream.Method, "endpoint", upstream.Endpoint, "status", upstream.Status, "body", upstream.Body)
	} else if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}

	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", shared.ErrInvalidInput)
	}
	return nil
}
