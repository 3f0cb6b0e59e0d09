package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./roomcast.db" {
			t.Errorf("expected database path ./roomcast.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}
		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Spotify.Timeout.Duration != 10*time.Second {
			t.Errorf("expected spotify timeout 10s, got %v", config.Spotify.Timeout)
		}
		if config.Rooms.CodeLength != 6 {
			t.Errorf("expected code length 6, got %d", config.Rooms.CodeLength)
		}
		if config.Rooms.TTL.Duration != 0 {
			t.Errorf("expected pruning disabled by default, got %v", config.Rooms.TTL)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080
frontend_url = "https://party.example.com"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:8080/api/spotify-callback"

[spotify]
timeout = "2500ms"

[rooms]
ttl = "72h"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Spotify.Timeout.Duration != 2500*time.Millisecond {
			t.Errorf("expected timeout 2.5s, got %v", config.Spotify.Timeout)
		}
		if config.Rooms.TTL.Duration != 72*time.Hour {
			t.Errorf("expected ttl 72h, got %v", config.Rooms.TTL)
		}
		if config.Rooms.CodeLength != 6 {
			t.Errorf("missing keys should keep defaults, got code length %d", config.Rooms.CodeLength)
		}
	})

	t.Run("LoadConfig invalid duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[spotify]\ntimeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		config.Credentials.Spotify.ClientSecret = ""
		if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		config = DefaultConfig()
		config.Rooms.CodeAttempts = 0
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env_client")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env_secret")

		prev, had := os.LookupEnv("SPOTIFY_REDIRECT_URI")
		os.Unsetenv("SPOTIFY_REDIRECT_URI")
		t.Cleanup(func() {
			if had {
				os.Setenv("SPOTIFY_REDIRECT_URI", prev)
			} else {
				os.Unsetenv("SPOTIFY_REDIRECT_URI")
			}
		})

		envPath := filepath.Join(t.TempDir(), ".env")
		envFile := "SPOTIFY_CLIENT_ID=file_client\nSPOTIFY_REDIRECT_URI=http://file/callback\n"
		if err := os.WriteFile(envPath, []byte(envFile), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}

		config := DefaultConfig()
		config.ApplyEnv(envPath, filepath.Join(t.TempDir(), "missing.env"))

		if config.Credentials.Spotify.ClientID != "env_client" {
			t.Errorf("process env should win over .env, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "env_secret" {
			t.Errorf("expected env_secret, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Credentials.Spotify.RedirectURI != "http://file/callback" {
			t.Errorf("expected redirect from .env, got %s", config.Credentials.Spotify.RedirectURI)
		}
	})
}
