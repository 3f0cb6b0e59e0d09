package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// FakeTrack is a track served by [FakeSpotify] as the current item.
type FakeTrack struct {
	ID       string
	Name     string
	Artists  []string
	Duration int
	Image    string
}

// FakeSpotify is an httptest server speaking the subset of the Spotify accounts and Web API
// endpoints used by the proxy: the token endpoint and /v1/me/player/*.
//
// Counters are safe to read from tests while requests are in flight.
type FakeSpotify struct {
	Server *httptest.Server

	Exchanges atomic.Int32
	Refreshes atomic.Int32
	Skips     atomic.Int32
	Plays     atomic.Int32
	Pauses    atomic.Int32
	Transfers atomic.Int32
	Requests  atomic.Int32 // Web API calls, token endpoint excluded

	mu            sync.Mutex
	current       *FakeTrack
	queue         []*FakeTrack
	playing       bool
	progress      int
	refreshStatus int
	refreshDelay  time.Duration
	playerStatus  int
	playerDelay   time.Duration
	lastAuth      string
	lastTransfer  []byte
}

// NewFakeSpotify starts a [FakeSpotify] that is closed when the test finishes.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{playing: true}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.token)
	mux.HandleFunc("GET /v1/me/player/currently-playing", f.currentlyPlaying)
	mux.HandleFunc("PUT /v1/me/player/play", f.player(&f.Plays, nil))
	mux.HandleFunc("PUT /v1/me/player/pause", f.player(&f.Pauses, nil))
	mux.HandleFunc("POST /v1/me/player/next", f.player(&f.Skips, f.advance))
	mux.HandleFunc("PUT /v1/me/player", f.transfer)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// AuthURL is the authorize endpoint; it is never requested by the server itself.
func (f *FakeSpotify) AuthURL() string { return f.Server.URL + "/authorize" }

// TokenURL is the token endpoint.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// APIURL is the Web API root.
func (f *FakeSpotify) APIURL() string { return f.Server.URL + "/v1" }

// Play sets the current track followed by queue. A nil current means nothing is playing.
func (f *FakeSpotify) Play(current *FakeTrack, queue ...*FakeTrack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = current
	f.queue = queue
	f.playing = true
	f.progress = 0
}

// Current returns the id of the current track, or "".
func (f *FakeSpotify) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return ""
	}
	return f.current.ID
}

// FailRefresh makes the refresh grant answer with status.
func (f *FakeSpotify) FailRefresh(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

// SlowRefresh delays every refresh grant by d.
func (f *FakeSpotify) SlowRefresh(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshDelay = d
}

// FailPlayer makes every Web API call answer with status.
func (f *FakeSpotify) FailPlayer(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playerStatus = status
}

// SlowPlayer delays every Web API call by d.
func (f *FakeSpotify) SlowPlayer(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playerDelay = d
}

// LastAuthorization returns the Authorization header of the latest Web API call.
func (f *FakeSpotify) LastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

// LastTransfer returns the body of the latest transfer request.
func (f *FakeSpotify) LastTransfer() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTransfer
}

func (f *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, _, ok := r.BasicAuth(); !ok {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") == "bad" {
			writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		n := f.Exchanges.Add(1)
		writeFakeJSON(w, http.StatusOK, map[string]any{
			"access_token":  fmt.Sprintf("access-%d", n),
			"refresh_token": fmt.Sprintf("refresh-%d", n),
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	case "refresh_token":
		f.mu.Lock()
		status, delay := f.refreshStatus, f.refreshDelay
		f.mu.Unlock()

		n := f.Refreshes.Add(1)
		time.Sleep(delay)
		if status != 0 {
			writeFakeJSON(w, status, map[string]string{"error": "invalid_grant"})
			return
		}
		writeFakeJSON(w, http.StatusOK, map[string]any{
			"access_token": fmt.Sprintf("refreshed-%d", n),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	default:
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

// begin records the call and reports whether the handler should proceed.
func (f *FakeSpotify) begin(w http.ResponseWriter, r *http.Request) bool {
	f.Requests.Add(1)

	f.mu.Lock()
	f.lastAuth = r.Header.Get("Authorization")
	status, delay := f.playerStatus, f.playerDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return false
		}
	}
	if status != 0 {
		writeFakeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "player command failed"}})
		return false
	}
	return true
}

func (f *FakeSpotify) currentlyPlaying(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	artists := make([]map[string]string, 0, len(f.current.Artists))
	for _, a := range f.current.Artists {
		artists = append(artists, map[string]string{"name": a})
	}
	images := []map[string]any{}
	if f.current.Image != "" {
		images = append(images, map[string]any{"url": f.current.Image, "height": 640, "width": 640})
	}

	writeFakeJSON(w, http.StatusOK, map[string]any{
		"is_playing":             f.playing,
		"progress_ms":            f.progress,
		"currently_playing_type": "track",
		"item": map[string]any{
			"id":          f.current.ID,
			"name":        f.current.Name,
			"artists":     artists,
			"album":       map[string]any{"images": images},
			"duration_ms": f.current.Duration,
		},
	})
}

func (f *FakeSpotify) player(counter *atomic.Int32, after func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !f.begin(w, r) {
			return
		}
		counter.Add(1)
		if after != nil {
			after()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *FakeSpotify) advance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		f.current = nil
		return
	}
	f.current, f.queue = f.queue[0], f.queue[1:]
	f.progress = 0
}

func (f *FakeSpotify) transfer(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r) {
		return
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed json"})
		return
	}

	f.mu.Lock()
	f.lastTransfer = body
	f.mu.Unlock()

	f.Transfers.Add(1)
	w.WriteHeader(http.StatusNoContent)
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
