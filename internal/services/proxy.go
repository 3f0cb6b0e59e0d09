package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
	"golang.org/x/time/rate"
)

const defaultCallTimeout = 10 * time.Second

// maxUpstreamBody caps how much of a Spotify response is buffered.
const maxUpstreamBody = 1 << 20

// TokenSource yields a usable credential for a host identity. [*TokenManager] implements it.
type TokenSource interface {
	EnsureValidToken(ctx context.Context, key string) (*models.Credential, error)
}

// Response is a successful Spotify Web API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// UpstreamError is returned for any failed call to Spotify: a non-2xx status, a transport
// failure, or a timeout. Status is 0 when no response was received.
type UpstreamError struct {
	Method   string
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("spotify %s %s: %v", e.Method, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("spotify %s %s: status %d", e.Method, e.Endpoint, e.Status)
}

// Unwrap lets callers match both [shared.ErrUpstream] and the underlying cause.
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrUpstream}
	}
	return []error{shared.ErrUpstream, e.Err}
}

// Proxy is the single path through which the server calls Spotify on behalf of a host.
//
// Every call first obtains a valid credential from the [TokenSource], is bounded by a
// timeout and passes a shared rate limiter. Calls are never retried here.
type Proxy struct {
	tokens     TokenSource
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ProxyOpts contains configuration options for creating a Proxy.
type ProxyOpts struct {
	Tokens     TokenSource
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  float64 // requests per second; zero or less disables limiting
	Burst      int
	Logger     *log.Logger
}

// NewProxy creates a new [Proxy] with the provided options
func NewProxy(opts ProxyOpts) *Proxy {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	return &Proxy{
		tokens:     opts.Tokens,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		limiter:    rate.NewLimiter(limit, opts.Burst),
		logger:     shared.WithLogger(opts.Logger, "component", "proxy"),
	}
}

// Call performs an authenticated request against endpoint (relative to the API root) as key.
//
// body, when non-nil, is sent as JSON. Credential errors ([shared.ErrNoCredential],
// [shared.ErrRefreshFailed]) are returned without contacting Spotify.
func (p *Proxy) Call(ctx context.Context, key, method, endpoint string, body any) (*Response, error) {
	cred, err := p.tokens.EnsureValidToken(ctx, key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	upstreamErr := func(status int, body []byte, err error) error {
		e := &UpstreamError{Method: method, Endpoint: endpoint, Status: status, Body: string(body), Err: err}
		p.logger.Error("spotify request failed", "method", method, "endpoint", endpoint, "status", status, "body", e.Body, "error", err)
		return e
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, upstreamErr(0, nil, fmt.Errorf("rate limiter: %w", err))
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	req.Header.Set("Authorization", tokenType+" "+cred.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, upstreamErr(0, nil, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, upstreamErr(resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamErr(resp.StatusCode, data, nil)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// CurrentlyPlaying returns the host's current track, or [shared.ErrNothingPlaying] when the
// player is idle or reports no item.
func (p *Proxy) CurrentlyPlaying(ctx context.Context, key string) (*CurrentlyPlaying, error) {
	resp, err := p.Call(ctx, key, http.MethodGet, "/me/player/currently-playing", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, shared.ErrNothingPlaying
	}

	var playing CurrentlyPlaying
	if err := json.Unmarshal(resp.Body, &playing); err != nil {
		return nil, &UpstreamError{
			Method: http.MethodGet, Endpoint: "/me/player/currently-playing",
			Status: resp.StatusCode, Body: string(resp.Body),
			Err: fmt.Errorf("failed to decode response: %w", err),
		}
	}
	if playing.Item == nil || playing.Item.ID == "" {
		return nil, shared.ErrNothingPlaying
	}

	return &playing, nil
}

// Play resumes the host's playback.
func (p *Proxy) Play(ctx context.Context, key string) error {
	_, err := p.Call(ctx, key, http.MethodPut, "/me/player/play", nil)
	return err
}

// Pause pauses the host's playback.
func (p *Proxy) Pause(ctx context.Context, key string) error {
	_, err := p.Call(ctx, key, http.MethodPut, "/me/player/pause", nil)
	return err
}

// Skip advances the host's playback to the next track.
func (p *Proxy) Skip(ctx context.Context, key string) error {
	_, err := p.Call(ctx, key, http.MethodPost, "/me/player/next", nil)
	return err
}

type transferRequest struct {
	DeviceIDs []string `json:"device_ids"`
	Play      bool     `json:"play"`
}

// TransferPlayback moves the host's playback to deviceID and starts playing there.
func (p *Proxy) TransferPlayback(ctx context.Context, key, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device_id is required", shared.ErrInvalidInput)
	}
	_, err := p.Call(ctx, key, http.MethodPut, "/me/player", transferRequest{DeviceIDs: []string{deviceID}, Play: true})
	return err
}

// IsUpstream reports whether err came from a failed Spotify call, returning its details.
func IsUpstream(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
