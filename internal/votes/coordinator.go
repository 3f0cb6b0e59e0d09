package votes

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/services"
	"github.com/desertthunder/roomcast/internal/shared"
)

// Player is the part of the playback proxy the coordinator drives. [*services.Proxy] implements it.
type Player interface {
	CurrentlyPlaying(ctx context.Context, key string) (*services.CurrentlyPlaying, error)
	Skip(ctx context.Context, key string) error
}

// Outcome reports what a skip request did.
type Outcome struct {
	Skipped  bool
	Votes    int // votes for the current track after this request; 0 once skipped
	Required int
}

// roomState is the vote set of one room. An empty trackID means no track is tracked.
//
// skipped is the last track skipped in the room. Spotify may keep reporting it for a moment
// after the skip, and votes against it must not start a new vote set.
type roomState struct {
	mu      sync.Mutex
	trackID string
	voters  map[string]struct{}
	skipped string
}

func (s *roomState) reset(trackID string) {
	s.trackID = trackID
	s.voters = make(map[string]struct{})
}

func (s *roomState) clear() {
	s.trackID = ""
	s.voters = nil
}

// Coordinator accumulates skip votes per room and per track and skips once a room's
// threshold is reached.
//
// Each room has its own lock held across the whole read-check-skip sequence, so two racing
// votes at threshold-1 produce exactly one skip. Rooms never wait on each other.
type Coordinator struct {
	mu     sync.Mutex
	rooms  map[string]*roomState
	player Player
	logger *log.Logger
}

// NewCoordinator creates a new [Coordinator] skipping through player.
func NewCoordinator(player Player, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Coordinator{
		rooms:  make(map[string]*roomState),
		player: player,
		logger: shared.WithLogger(logger, "component", "votes"),
	}
}

func (c *Coordinator) state(code string) *roomState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.rooms[code]
	if !ok {
		st = &roomState{}
		c.rooms[code] = st
	}
	return st
}

func (c *Coordinator) lookup(code string) (*roomState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.rooms[code]
	return st, ok
}

// Skip handles a skip request from voterKey in room.
//
// The host skips immediately. A guest's vote is counted against the live track; reaching
// room.VotesToSkip issues the skip. A failed skip call leaves the vote set as it was and
// returns the error. Until Spotify reports a different track, votes against the track just
// skipped report it as skipped without skipping again. A guest vote with nothing playing fails with [shared.ErrNoActiveTrack].
func (c *Coordinator) Skip(ctx context.Context, room *models.Room, voterKey string) (Outcome, error) {
	st := c.state(room.Code)
	st.mu.Lock()
	defer st.mu.Unlock()

	required := room.VotesToSkip
	if room.IsHost(voterKey) {
		if err := c.player.Skip(ctx, room.HostKey); err != nil {
			return Outcome{Required: required}, err
		}
		st.skipped = st.trackID
		st.clear()
		c.logger.Info("host skipped", "room", room.Code)
		return Outcome{Skipped: true, Required: required}, nil
	}

	playing, err := c.player.CurrentlyPlaying(ctx, room.HostKey)
	if errors.Is(err, shared.ErrNothingPlaying) {
		return Outcome{Required: required}, shared.ErrNoActiveTrack
	}
	if err != nil {
		return Outcome{Required: required}, err
	}

	if playing.Item.ID == st.skipped {
		c.logger.Debug("vote for a track already skipped", "room", room.Code, "track", st.skipped)
		return Outcome{Skipped: true, Required: required}, nil
	}
	st.skipped = ""

	if st.trackID != playing.Item.ID {
		st.reset(playing.Item.ID)
	}
	st.voters[voterKey] = struct{}{}

	votes := len(st.voters)
	if votes < required {
		c.logger.Debug("vote counted", "room", room.Code, "track", st.trackID, "votes", votes, "required", required)
		return Outcome{Votes: votes, Required: required}, nil
	}

	if err := c.player.Skip(ctx, room.HostKey); err != nil {
		return Outcome{Votes: votes, Required: required}, err
	}

	c.logger.Info("vote threshold reached, skipped", "room", room.Code, "track", st.trackID, "votes", votes)
	st.skipped = st.trackID
	st.clear()
	return Outcome{Skipped: true, Required: required}, nil
}

// Observe reconciles the room's vote set with the live track and returns its vote count.
//
// A vote set for any other track is discarded and 0 reported.
func (c *Coordinator) Observe(code, trackID string) int {
	st, ok := c.lookup(code)
	if !ok {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.skipped != trackID {
		st.skipped = ""
	}
	if st.trackID == "" {
		return 0
	}
	if st.trackID != trackID {
		c.logger.Debug("track changed, votes discarded", "room", code, "from", st.trackID, "to", trackID)
		st.clear()
		return 0
	}
	return len(st.voters)
}

// Forget drops all vote state for the room.
func (c *Coordinator) Forget(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, code)
}
