package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/session"
	"github.com/desertthunder/roomcast/internal/shared"
)

type skipResponse struct {
	Message       string `json:"message"`
	Votes         int    `json:"votes"`
	VotesRequired int    `json:"votes_required"`
}

type transferRequest struct {
	DeviceID string `json:"device_id"`
}

type authURLResponse struct {
	URL string `json:"url"`
}

type authStatusResponse struct {
	Status bool `json:"status"`
}

// resolve loads the caller's room and role, writing the error response when that fails.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*models.Room, models.Role, bool) {
	room, role, err := s.sessions.Resolve(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return nil, role, false
	}
	return room, role, true
}

func (s *Server) currentSong(w http.ResponseWriter, r *http.Request) {
	room, _, ok := s.resolve(w, r)
	if !ok {
		return
	}

	song, err := s.songs.CurrentSong(r.Context(), room)
	if errors.Is(err, shared.ErrNothingPlaying) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, s.player.Play)
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, s.player.Pause)
}

// control runs a play/pause command for the host's player. Guests need guest_can_pause.
func (s *Server) control(w http.ResponseWriter, r *http.Request, command func(ctx context.Context, key string) error) {
	room, role, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if role != models.RoleHost && !room.GuestCanPause {
		writeError(w, s.logger, fmt.Errorf("%w: guests may not control playback in %s", shared.ErrForbidden, room.Code))
		return
	}

	if err := command(r.Context(), room.HostKey); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) skip(w http.ResponseWriter, r *http.Request) {
	room, _, ok := s.resolve(w, r)
	if !ok {
		return
	}

	out, err := s.votes.Skip(r.Context(), room, session.FromContext(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if out.Skipped {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, skipResponse{Message: "vote counted", Votes: out.Votes, VotesRequired: out.Required})
}

func (s *Server) transferPlayback(w http.ResponseWriter, r *http.Request) {
	room, role, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if role != models.RoleHost {
		writeError(w, s.logger, fmt.Errorf("%w: only the host may transfer playback", shared.ErrForbidden))
		return
	}

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	if err := s.player.TransferPlayback(r.Context(), room.HostKey, req.DeviceID); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getAuthURL returns the Spotify authorize URL for the caller's room. The room code is the
// OAuth state, so the callback can bind the credential to the room's host.
func (s *Server) getAuthURL(w http.ResponseWriter, r *http.Request) {
	room, role, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if role != models.RoleHost {
		writeError(w, s.logger, fmt.Errorf("%w: only the host may authorize Spotify", shared.ErrForbidden))
		return
	}
	writeJSON(w, http.StatusOK, authURLResponse{URL: s.auth.AuthURL(room.Code)})
}

func (s *Server) isAuthenticated(w http.ResponseWriter, r *http.Request) {
	ok, err := s.auth.HasCredential(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authStatusResponse{Status: ok})
}
