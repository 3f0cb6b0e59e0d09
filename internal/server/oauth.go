package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
)

// RoomFinder resolves the OAuth state back to a room.
type RoomFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Room, error)
}

// CodeExchanger stores the credential obtained for an authorization code.
type CodeExchanger interface {
	Exchange(ctx context.Context, key, code string) (*models.Credential, error)
}

// CallbackHandler handles the Spotify OAuth2 redirect of the authorization code flow.
// Implements the [Handler] interface for registration with a [Router].
//
// The state parameter is the code of the room the host authorized from. The credential is
// stored under that room's host key, never under the caller's session, so a browser other
// than the host's cannot attach a Spotify account to someone else's room.
type CallbackHandler struct {
	rooms       RoomFinder
	exchanger   CodeExchanger
	frontendURL string
	logger      *log.Logger
}

// NewCallbackHandler creates a new [CallbackHandler] redirecting to frontendURL when done.
func NewCallbackHandler(rooms RoomFinder, exchanger CodeExchanger, frontendURL string, logger *log.Logger) *CallbackHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CallbackHandler{
		rooms:       rooms,
		exchanger:   exchanger,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		logger:      shared.WithLogger(logger, "component", "oauth"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET /spotify-callback"}
}

// ServeHTTP validates state, exchanges the code and redirects the host back to the room.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	room, err := h.rooms.FindByCode(r.Context(), q.Get("state"))
	if errors.Is(err, shared.ErrRoomNotFound) {
		h.logger.Warn("callback with unknown state", "state", q.Get("state"))
		writeError(w, h.logger, shared.ErrInvalidState)
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.logger.Warn("authorization denied", "room", room.Code, "error", q.Get("error"))
		http.Redirect(w, r, h.roomURL(room.Code, q.Get("error")), http.StatusFound)
		return
	}

	if _, err := h.exchanger.Exchange(r.Context(), room.HostKey, code); err != nil {
		writeError(w, h.logger, fmt.Errorf("token exchange for room %s: %w", room.Code, err))
		return
	}

	h.logger.Info("host authorized", "room", room.Code)
	http.Redirect(w, r, h.roomURL(room.Code, ""), http.StatusFound)
}

func (h *CallbackHandler) roomURL(code, authErr string) string {
	u := h.frontendURL + "/room/" + url.PathEscape(code)
	if authErr != "" {
		u += "?error=" + url.QueryEscape(authErr)
	}
	return u
}
