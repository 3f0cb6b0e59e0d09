package session

import (
	"context"
	"errors"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
)

// RoomFinder looks rooms up by code and records activity in them. [*rooms.Directory] implements it.
type RoomFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Room, error)
	Touch(ctx context.Context, code string) error
}

// Store persists the room pointer of each session. [*repositories.SessionRepository] implements it.
type Store interface {
	SetRoom(ctx context.Context, sessionID, code string) error
	ClearRoom(ctx context.Context, sessionID string) error
	RoomCode(ctx context.Context, sessionID string) (string, error)
}

// Binder associates sessions with at most one room each.
type Binder struct {
	rooms RoomFinder
	store Store
}

// NewBinder creates a new [Binder].
func NewBinder(rooms RoomFinder, store Store) *Binder {
	return &Binder{rooms: rooms, store: store}
}

// Bind points sessionID at the room with code, replacing any previous binding.
func (b *Binder) Bind(ctx context.Context, sessionID, code string) (*models.Room, error) {
	room, err := b.rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := b.store.SetRoom(ctx, sessionID, room.Code); err != nil {
		return nil, err
	}
	if err := b.rooms.Touch(ctx, room.Code); err != nil {
		return nil, err
	}
	return room, nil
}

// Current returns the code sessionID is bound to, or "".
func (b *Binder) Current(ctx context.Context, sessionID string) (string, error) {
	return b.store.RoomCode(ctx, sessionID)
}

// Unbind removes the binding. The room itself is kept, also when the session hosts it.
func (b *Binder) Unbind(ctx context.Context, sessionID string) error {
	return b.store.ClearRoom(ctx, sessionID)
}

// Resolve returns the room sessionID is bound to and the role it holds there, and marks the
// room as active.
//
// Returns [shared.ErrNotInRoom] for an unbound session. A binding to a room that no longer
// exists is cleared and reported as [shared.ErrRoomNotFound].
func (b *Binder) Resolve(ctx context.Context, sessionID string) (*models.Room, models.Role, error) {
	code, err := b.store.RoomCode(ctx, sessionID)
	if err != nil {
		return nil, models.RoleGuest, err
	}
	if code == "" {
		return nil, models.RoleGuest, shared.ErrNotInRoom
	}

	room, err := b.rooms.FindByCode(ctx, code)
	if errors.Is(err, shared.ErrRoomNotFound) {
		if cerr := b.store.ClearRoom(ctx, sessionID); cerr != nil {
			return nil, models.RoleGuest, cerr
		}
		return nil, models.RoleGuest, err
	}
	if err != nil {
		return nil, models.RoleGuest, err
	}
	if err := b.rooms.Touch(ctx, room.Code); err != nil {
		return nil, models.RoleGuest, err
	}

	return room, room.RoleOf(sessionID), nil
}
