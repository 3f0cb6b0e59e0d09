package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SessionRepository persists the room pointer of each session.
type SessionRepository struct {
	db querier
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SetRoom points the session at code, creating the session row if needed.
func (r *SessionRepository) SetRoom(ctx context.Context, sessionID, code string) error {
	return r.write(ctx, sessionID, sql.NullString{String: code, Valid: true})
}

// ClearRoom removes the session's room pointer. Unknown sessions are not an error.
func (r *SessionRepository) ClearRoom(ctx context.Context, sessionID string) error {
	return r.write(ctx, sessionID, sql.NullString{})
}

// RoomCode returns the session's room code, or "" when the session is not in a room.
func (r *SessionRepository) RoomCode(ctx context.Context, sessionID string) (string, error) {
	var code sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT room_code FROM sessions WHERE id = ?`, sessionID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session: %w", err)
	}
	return code.String, nil
}

func (r *SessionRepository) write(ctx context.Context, sessionID string, code sql.NullString) error {
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, room_code, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET room_code = excluded.room_code, updated_at = excluded.updated_at
	`, sessionID, code, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
