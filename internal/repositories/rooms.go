package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
)

// TouchInterval is the minimum gap between two activity writes for the same room.
const TouchInterval = time.Minute

const roomColumns = `id, code, host_key, guest_can_pause, votes_to_skip, created_at, updated_at, active_at`

// RoomRepository persists [models.Room] records.
type RoomRepository struct {
	db querier
}

// NewRoomRepository creates a new [RoomRepository] with the given database connection
func NewRoomRepository(db *sql.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a new room. The room's ID and timestamps are set on success.
//
// Returns [shared.ErrDuplicateCode] when the code is taken and [shared.ErrDuplicateHost] when
// the host already owns a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if err := room.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO rooms (code, host_key, guest_can_pause, votes_to_skip, created_at, updated_at, active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, room.Code, room.HostKey, room.GuestCanPause, room.VotesToSkip, ts, ts, ts)
	switch {
	case shared.IsUniqueViolation(err, "rooms.code"):
		return fmt.Errorf("%w: %s", shared.ErrDuplicateCode, room.Code)
	case shared.IsUniqueViolation(err, "rooms.host_key"):
		return shared.ErrDuplicateHost
	case err != nil:
		return fmt.Errorf("failed to insert room: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read room id: %w", err)
	}

	room.ID = id
	room.CreatedAt = ts
	room.UpdatedAt = ts
	room.ActiveAt = ts
	return nil
}

// GetByCode retrieves a room by its share code.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = ?`, code)
	return scanRoom(row)
}

// GetByHost retrieves the room owned by hostKey.
func (r *RoomRepository) GetByHost(ctx context.Context, hostKey string) (*models.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE host_key = ?`, hostKey)
	return scanRoom(row)
}

// UpdateSettings writes GuestCanPause and VotesToSkip for the room with room.Code.
func (r *RoomRepository) UpdateSettings(ctx context.Context, room *models.Room) error {
	if err := room.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE rooms
		SET guest_can_pause = ?, votes_to_skip = ?, updated_at = ?, active_at = ?
		WHERE code = ?
	`, room.GuestCanPause, room.VotesToSkip, ts, ts, room.Code)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRoomNotFound, room.Code)
	}

	room.UpdatedAt = ts
	room.ActiveAt = ts
	return nil
}

// Touch marks the room as active now. Writes within [TouchInterval] of the last one are
// skipped, so polling clients do not turn every read into a write. Unknown codes are ignored.
func (r *RoomRepository) Touch(ctx context.Context, code string) error {
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE rooms SET active_at = ?
		WHERE code = ? AND active_at < ?
	`, ts, code, ts.Add(-TouchInterval))
	if err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	return nil
}

// List retrieves all rooms, oldest first.
func (r *RoomRepository) List(ctx context.Context) ([]*models.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return rooms, nil
}

// DeleteStale removes rooms with no activity since cutoff and returns how many went.
func (r *RoomRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE active_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale rooms: %w", err)
	}
	return result.RowsAffected()
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var room models.Room
	err := row.Scan(&room.ID, &room.Code, &room.HostKey, &room.GuestCanPause, &room.VotesToSkip, &room.CreatedAt, &room.UpdatedAt, &room.ActiveAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	return &room, nil
}
