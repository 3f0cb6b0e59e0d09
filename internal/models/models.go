package models

import (
	"fmt"
	"strings"
	"time"
)

// Role describes how a session relates to a room.
type Role int

const (
	RoleGuest Role = iota
	RoleHost
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "guest"
}

// Room is a listening room. Code and HostKey are each unique across all rooms.
type Room struct {
	ID            int64     `json:"-"`
	Code          string    `json:"code"`
	HostKey       string    `json:"-"`
	GuestCanPause bool      `json:"guest_can_pause"`
	VotesToSkip   int       `json:"votes_to_skip"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ActiveAt      time.Time `json:"active_at"`
}

// Validate checks the room's settings.
func (r *Room) Validate() error {
	if strings.TrimSpace(r.HostKey) == "" {
		return fmt.Errorf("host key is required")
	}
	if r.VotesToSkip < 1 {
		return fmt.Errorf("votes_to_skip must be at least 1, got %d", r.VotesToSkip)
	}
	return nil
}

// IsHost reports whether key owns the room.
func (r *Room) IsHost(key string) bool {
	return key != "" && key == r.HostKey
}

// RoleOf returns the [Role] key holds in the room.
func (r *Room) RoleOf(key string) Role {
	if r.IsHost(key) {
		return RoleHost
	}
	return RoleGuest
}

// Credential is a stored Spotify OAuth credential.
type Credential struct {
	IdentityKey  string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int // seconds, counted from IssuedAt
	IssuedAt     time.Time
}

// ExpiresAt returns the instant after which the access token must be refreshed.
func (c *Credential) ExpiresAt() time.Time {
	return c.IssuedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
}

// Expired reports whether the access token is no longer usable at now.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt())
}

// Validate checks that the credential can be stored.
func (c *Credential) Validate() error {
	switch {
	case c.IdentityKey == "":
		return fmt.Errorf("identity key is required")
	case c.AccessToken == "":
		return fmt.Errorf("access token is required")
	case c.RefreshToken == "":
		return fmt.Errorf("refresh token is required")
	}
	return nil
}

// Song is the normalized currently-playing track for a room.
type Song struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	Duration      int    `json:"duration"` // milliseconds
	Time          int    `json:"time"`     // progress in milliseconds
	ImageURL      string `json:"image_url"`
	IsPlaying     bool   `json:"is_playing"`
	Votes         int    `json:"votes"`
	VotesRequired int    `json:"votes_required"`
}
