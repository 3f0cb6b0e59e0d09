package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Rooms       RoomsConfig       `toml:"rooms"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyClient.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// SpotifyAPIConfig tunes outgoing calls to the Spotify Web API.
type SpotifyAPIConfig struct {
	Timeout   Duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"` // requests per second across all hosts
	Burst     int      `toml:"burst"`
	APIURL    string   `toml:"api_url"`
	AuthURL   string   `toml:"auth_url"`
	TokenURL  string   `toml:"token_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	FrontendURL  string `toml:"frontend_url"`
	CookieSecure bool   `toml:"cookie_secure"`
	LogLevel     string `toml:"log_level"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RoomsConfig controls room code generation and stale room pruning.
type RoomsConfig struct {
	CodeLength   int      `toml:"code_length"`
	CodeAttempts int      `toml:"code_attempts"`
	TTL          Duration `toml:"ttl"` // idle time before a room is pruned, zero disables background pruning
}

// Duration wraps [time.Duration] so it can be written as "10s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Validate checks the values the server cannot run without.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if c.Rooms.CodeLength <= 0 {
		return fmt.Errorf("%w: rooms.code_length must be positive", ErrInvalidConfig)
	}
	if c.Rooms.CodeAttempts <= 0 {
		return fmt.Errorf("%w: rooms.code_attempts must be positive", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("%w: server.port must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, os.ErrExist)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays Spotify secrets from the environment onto the config.
//
// Files listed in envFiles are loaded first with [godotenv.Load]; variables already
// present in the process environment win. Missing files are ignored.
func (c *Config) ApplyEnv(envFiles ...string) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	if v, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok && v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok && v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v, ok := os.LookupEnv("SPOTIFY_REDIRECT_URI"); ok && v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
}
