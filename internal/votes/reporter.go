package votes

import (
	"context"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/services"
)

// TrackReader reads the host's live playback.
type TrackReader interface {
	CurrentlyPlaying(ctx context.Context, key string) (*services.CurrentlyPlaying, error)
}

// Reporter builds the current-song view of a room and keeps its vote set in step with the
// live track.
type Reporter struct {
	player TrackReader
	votes  *Coordinator
}

// NewReporter creates a new [Reporter].
func NewReporter(player TrackReader, votes *Coordinator) *Reporter {
	return &Reporter{player: player, votes: votes}
}

// CurrentSong returns the room's current song with its vote count.
//
// Returns [shared.ErrNothingPlaying] when the host's player is idle; the vote set is kept.
func (r *Reporter) CurrentSong(ctx context.Context, room *models.Room) (*models.Song, error) {
	playing, err := r.player.CurrentlyPlaying(ctx, room.HostKey)
	if err != nil {
		return nil, err
	}

	item := playing.Item
	return &models.Song{
		ID:            item.ID,
		Title:         item.Name,
		Artist:        item.ArtistNames(),
		Duration:      item.DurationMS,
		Time:          playing.ProgressMS,
		ImageURL:      item.CoverURL(),
		IsPlaying:     playing.IsPlaying,
		Votes:         r.votes.Observe(room.Code, item.ID),
		VotesRequired: room.VotesToSkip,
	}, nil
}
