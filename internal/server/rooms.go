package server

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/rooms"
	"github.com/desertthunder/roomcast/internal/session"
	"github.com/desertthunder/roomcast/internal/shared"
)

// roomView is a room as seen by the requesting session.
type roomView struct {
	*models.Room
	IsHost bool `json:"is_host"`
}

type createRoomRequest struct {
	GuestCanPause bool `json:"guest_can_pause"`
	VotesToSkip   int  `json:"votes_to_skip"`
}

type updateRoomRequest struct {
	Code          string `json:"code"`
	GuestCanPause bool   `json:"guest_can_pause"`
	VotesToSkip   int    `json:"votes_to_skip"`
}

type joinRoomRequest struct {
	Code string `json:"code"`
}

type userInRoomResponse struct {
	Code *string `json:"code"`
}

// createRoom creates the caller's room, or updates it when the caller already hosts one,
// and binds the caller to it.
func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	sid := session.FromContext(r.Context())

	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	room, created, err := s.rooms.CreateOrUpdate(r.Context(), sid, rooms.Settings{
		GuestCanPause: req.GuestCanPause,
		VotesToSkip:   req.VotesToSkip,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	if _, err := s.sessions.Bind(r.Context(), sid, room.Code); err != nil {
		writeError(w, s.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		// a pruned room's code may be handed out again
		s.votes.Forget(room.Code)
		status = http.StatusCreated
	}
	writeJSON(w, status, roomView{Room: room, IsHost: true})
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, s.logger, fmt.Errorf("%w: code parameter not found in request", shared.ErrInvalidInput))
		return
	}

	room, err := s.rooms.FindByCode(r.Context(), code)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	sid := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, roomView{Room: room, IsHost: room.IsHost(sid)})
}

func (s *Server) userInRoom(w http.ResponseWriter, r *http.Request) {
	code, err := s.sessions.Current(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var resp userInRoomResponse
	if code != "" {
		resp.Code = &code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if req.Code == "" {
		writeError(w, s.logger, fmt.Errorf("%w: code is required", shared.ErrInvalidInput))
		return
	}

	if _, err := s.sessions.Bind(r.Context(), session.FromContext(r.Context()), req.Code); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "room joined"})
}

// leaveRoom clears the caller's binding. A host leaving keeps the room.
func (s *Server) leaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Unbind(r.Context(), session.FromContext(r.Context())); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "left room"})
}

func (s *Server) updateRoom(w http.ResponseWriter, r *http.Request) {
	var req updateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if req.Code == "" {
		writeError(w, s.logger, fmt.Errorf("%w: code is required", shared.ErrInvalidInput))
		return
	}

	sid := session.FromContext(r.Context())
	room, err := s.rooms.UpdateIfHost(r.Context(), req.Code, sid, rooms.Settings{
		GuestCanPause: req.GuestCanPause,
		VotesToSkip:   req.VotesToSkip,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, roomView{Room: room, IsHost: true})
}
