package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Room and session errors
	ErrRoomNotFound  = fmt.Errorf("room not found")
	ErrForbidden     = fmt.Errorf("forbidden")
	ErrDuplicateCode = fmt.Errorf("room code already in use")
	ErrDuplicateHost = fmt.Errorf("host already owns a room")
	ErrCodeExhausted = fmt.Errorf("could not generate a unique room code")
	ErrNotInRoom     = fmt.Errorf("session is not in a room")

	// Authentication errors
	ErrNoCredential  = fmt.Errorf("not authenticated")
	ErrRefreshFailed = fmt.Errorf("token refresh failed")
	ErrInvalidState  = fmt.Errorf("invalid state parameter")
	ErrAuthFailed    = fmt.Errorf("authentication failed")

	// Playback errors
	ErrUpstream       = fmt.Errorf("spotify API request failed")
	ErrNoActiveTrack  = fmt.Errorf("no active track")
	ErrNothingPlaying = fmt.Errorf("nothing playing")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
