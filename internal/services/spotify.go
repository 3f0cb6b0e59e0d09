// Spotify Web API client used to authorize hosts and control their playback
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/roomcast/internal/models"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

var spotifyScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"streaming",
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// ArtistNames joins the track's artist names with ", ".
func (t *SpotifyTrack) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// CoverURL returns the first (largest) album image, or "".
func (t *SpotifyTrack) CoverURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

// CurrentlyPlaying is the response of GET /me/player/currently-playing.
//
// Item is nil while an ad or an unsupported item plays.
type CurrentlyPlaying struct {
	IsPlaying            bool          `json:"is_playing"`
	ProgressMS           int           `json:"progress_ms"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	Item                 *SpotifyTrack `json:"item"`
}

// SpotifyOptions overrides endpoints and transport, mainly for tests.
type SpotifyOptions struct {
	APIURL     string
	AuthURL    string
	TokenURL   string
	HTTPClient *http.Client
}

// SpotifyClient handles the OAuth2 authorization code flow for Spotify.
//
// Uses [oauth2] for the authorize URL, code exchange and refresh grant.
type SpotifyClient struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyClient creates a new Spotify client with the given OAuth2 credentials.
func NewSpotifyClient(credentials map[string]string, opts SpotifyOptions) (*SpotifyClient, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:5000/api/spotify-callback"
	}

	if opts.APIURL == "" {
		opts.APIURL = spotifyBaseURL
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyClient{
		config:     config,
		baseURL:    strings.TrimSuffix(opts.APIURL, "/"),
		httpClient: opts.HTTPClient,
	}, nil
}

// BaseURL returns the Web API root that playback calls are made against.
func (s *SpotifyClient) BaseURL() string {
	return s.baseURL
}

// AuthURL returns the OAuth2 authorization URL for host login, carrying state back to the callback.
func (s *SpotifyClient) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Refresh performs a refresh_token grant. When Spotify omits a new refresh
// token, the returned token carries the one that was sent.
func (s *SpotifyClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := s.config.TokenSource(s.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func (s *SpotifyClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// credentialFromToken converts an [oauth2.Token] into a stored credential issued at issuedAt.
func credentialFromToken(key string, token *oauth2.Token, issuedAt time.Time) *models.Credential {
	expiresIn := int(token.ExpiresIn)
	if expiresIn <= 0 && !token.Expiry.IsZero() {
		expiresIn = int(token.Expiry.Sub(issuedAt).Seconds())
	}

	return &models.Credential{
		IdentityKey:  key,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresIn:    expiresIn,
		IssuedAt:     issuedAt,
	}
}
