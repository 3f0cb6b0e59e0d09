package models

import (
	"testing"
	"time"
)

func TestRoom(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			room    Room
			wantErr bool
		}{
			{name: "valid", room: Room{HostKey: "h", VotesToSkip: 1}},
			{name: "missing host", room: Room{VotesToSkip: 2}, wantErr: true},
			{name: "zero votes", room: Room{HostKey: "h", VotesToSkip: 0}, wantErr: true},
			{name: "negative votes", room: Room{HostKey: "h", VotesToSkip: -1}, wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.room.Validate(); (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("RoleOf", func(t *testing.T) {
		room := Room{HostKey: "host-session"}
		if room.RoleOf("host-session") != RoleHost {
			t.Error("expected host role for host key")
		}
		if room.RoleOf("someone-else") != RoleGuest {
			t.Error("expected guest role for other key")
		}
		if room.IsHost("") {
			t.Error("empty key must never be host")
		}
		if RoleHost.String() != "host" || RoleGuest.String() != "guest" {
			t.Error("unexpected role names")
		}
	})
}

func TestCredential(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cred := Credential{IdentityKey: "k", AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600, IssuedAt: issued}

	if got := cred.ExpiresAt(); !got.Equal(issued.Add(time.Hour)) {
		t.Errorf("ExpiresAt() = %v", got)
	}
	if cred.Expired(issued.Add(59 * time.Minute)) {
		t.Error("token should still be valid before expiry")
	}
	if !cred.Expired(issued.Add(time.Hour)) {
		t.Error("token should be expired exactly at expiry")
	}
	if err := cred.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	cred.RefreshToken = ""
	if err := cred.Validate(); err == nil {
		t.Error("expected error for missing refresh token")
	}
}
