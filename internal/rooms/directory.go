package rooms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
)

const (
	DefaultCodeLength = 6
	DefaultAttempts   = 16
)

// Store is the durable side of the directory. [*repositories.RoomRepository] implements it.
type Store interface {
	Create(ctx context.Context, room *models.Room) error
	GetByCode(ctx context.Context, code string) (*models.Room, error)
	GetByHost(ctx context.Context, hostKey string) (*models.Room, error)
	UpdateSettings(ctx context.Context, room *models.Room) error
	List(ctx context.Context) ([]*models.Room, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
	Touch(ctx context.Context, code string) error
}

// Settings are the host-controlled fields of a room.
type Settings struct {
	GuestCanPause bool `json:"guest_can_pause"`
	VotesToSkip   int  `json:"votes_to_skip"`
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if s.VotesToSkip < 1 {
		return fmt.Errorf("%w: votes_to_skip must be at least 1", shared.ErrInvalidInput)
	}
	return nil
}

// Directory maps room codes to rooms, with at most one room per host.
type Directory struct {
	store      Store
	codeLength int
	attempts   int
	generate   func(n int) (string, error)
	logger     *log.Logger
}

// DirectoryOpts contains configuration options for creating a Directory.
type DirectoryOpts struct {
	Store      Store
	CodeLength int
	Attempts   int // code generation attempts before giving up
	Logger     *log.Logger
	Generate   func(n int) (string, error)
}

// NewDirectory creates a new [Directory] with the provided options
func NewDirectory(opts DirectoryOpts) *Directory {
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Generate == nil {
		opts.Generate = shared.GenerateCode
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Directory{
		store:      opts.Store,
		codeLength: opts.CodeLength,
		attempts:   opts.Attempts,
		generate:   opts.Generate,
		logger:     shared.WithLogger(opts.Logger, "component", "rooms"),
	}
}

// CreateOrUpdate gives hostKey a room with settings s.
//
// An existing room of the host is updated in place and the bool result is false. Otherwise a new
// room is inserted under a fresh random code; a code taken by a concurrent insert is retried
// with another one. A host that loses a concurrent create race gets the winner's room updated.
func (d *Directory) CreateOrUpdate(ctx context.Context, hostKey string, s Settings) (*models.Room, bool, error) {
	if err := s.Validate(); err != nil {
		return nil, false, err
	}
	if hostKey == "" {
		return nil, false, fmt.Errorf("%w: host key is required", shared.ErrInvalidInput)
	}

	existing, err := d.store.GetByHost(ctx, hostKey)
	switch {
	case err == nil:
		room, err := d.update(ctx, existing, s)
		return room, false, err
	case !errors.Is(err, shared.ErrRoomNotFound):
		return nil, false, err
	}

	for attempt := 1; attempt <= d.attempts; attempt++ {
		code, err := d.generate(d.codeLength)
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate room code: %w", err)
		}

		room := &models.Room{Code: code, HostKey: hostKey, GuestCanPause: s.GuestCanPause, VotesToSkip: s.VotesToSkip}
		err = d.store.Create(ctx, room)
		switch {
		case err == nil:
			d.logger.Info("room created", "room", room.Code, "attempt", attempt)
			return room, true, nil
		case errors.Is(err, shared.ErrDuplicateCode):
			d.logger.Debug("room code collision", "code", code, "attempt", attempt)
			continue
		case errors.Is(err, shared.ErrDuplicateHost):
			existing, err := d.store.GetByHost(ctx, hostKey)
			if err != nil {
				return nil, false, err
			}
			room, err := d.update(ctx, existing, s)
			return room, false, err
		default:
			return nil, false, err
		}
	}

	return nil, false, fmt.Errorf("%w after %d attempts", shared.ErrCodeExhausted, d.attempts)
}

func (d *Directory) update(ctx context.Context, room *models.Room, s Settings) (*models.Room, error) {
	room.GuestCanPause = s.GuestCanPause
	room.VotesToSkip = s.VotesToSkip
	if err := d.store.UpdateSettings(ctx, room); err != nil {
		return nil, err
	}
	d.logger.Info("room updated", "room", room.Code, "guest_can_pause", s.GuestCanPause, "votes_to_skip", s.VotesToSkip)
	return room, nil
}

// FindByCode returns the room with code, or [shared.ErrRoomNotFound].
func (d *Directory) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	if code == "" {
		return nil, shared.ErrRoomNotFound
	}
	return d.store.GetByCode(ctx, code)
}

// UpdateIfHost applies s to the room with code when requesterKey is its host.
//
// Returns [shared.ErrForbidden] for anyone else, leaving the room unchanged.
func (d *Directory) UpdateIfHost(ctx context.Context, code, requesterKey string, s Settings) (*models.Room, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	room, err := d.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(requesterKey) {
		return nil, fmt.Errorf("%w: only the host may update room %s", shared.ErrForbidden, code)
	}
	return d.update(ctx, room, s)
}

// List returns every room, oldest first.
func (d *Directory) List(ctx context.Context) ([]*models.Room, error) {
	return d.store.List(ctx)
}

// Touch records activity in the room with code, postponing its pruning.
func (d *Directory) Touch(ctx context.Context, code string) error {
	return d.store.Touch(ctx, code)
}

// Prune deletes rooms with no activity for longer than olderThan. Activity is a settings
// write, a join, or any request resolved through a session bound to the room.
func (d *Directory) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: prune window must be positive", shared.ErrInvalidArgument)
	}

	cutoff := time.Now().Add(-olderThan)
	n, err := d.store.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.logger.Info("pruned stale rooms", "count", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}
