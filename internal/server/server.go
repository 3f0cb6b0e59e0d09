// package server contains the router, middleware & handlers for the roomcast HTTP API
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/rooms"
	"github.com/desertthunder/roomcast/internal/session"
	"github.com/desertthunder/roomcast/internal/shared"
	"github.com/desertthunder/roomcast/internal/votes"
)

const (
	apiPrefix       = "/api"
	shutdownTimeout = 10 * time.Second
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, sessions, CORS, panic recovery, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own their routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// RoomDirectory creates, finds and updates rooms. [*rooms.Directory] implements it.
type RoomDirectory interface {
	CreateOrUpdate(ctx context.Context, hostKey string, s rooms.Settings) (*models.Room, bool, error)
	FindByCode(ctx context.Context, code string) (*models.Room, error)
	UpdateIfHost(ctx context.Context, code, requesterKey string, s rooms.Settings) (*models.Room, error)
}

// SessionBinder binds sessions to rooms. [*session.Binder] implements it.
type SessionBinder interface {
	Bind(ctx context.Context, sessionID, code string) (*models.Room, error)
	Current(ctx context.Context, sessionID string) (string, error)
	Unbind(ctx context.Context, sessionID string) error
	Resolve(ctx context.Context, sessionID string) (*models.Room, models.Role, error)
}

// Authenticator runs the host's Spotify authorization. [*services.TokenManager] implements it.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, key, code string) (*models.Credential, error)
	HasCredential(ctx context.Context, key string) (bool, error)
}

// Playback controls a host's player. [*services.Proxy] implements it.
type Playback interface {
	Play(ctx context.Context, key string) error
	Pause(ctx context.Context, key string) error
	TransferPlayback(ctx context.Context, key, deviceID string) error
}

// SkipVoter decides between counting a vote and skipping. [*votes.Coordinator] implements it.
type SkipVoter interface {
	Skip(ctx context.Context, room *models.Room, voterKey string) (votes.Outcome, error)
	Forget(code string)
}

// SongReporter reports a room's current song. [*votes.Reporter] implements it.
type SongReporter interface {
	CurrentSong(ctx context.Context, room *models.Room) (*models.Song, error)
}

// Options contains the collaborators and settings of a [Server].
type Options struct {
	Rooms    RoomDirectory
	Sessions SessionBinder
	Auth     Authenticator
	Player   Playback
	Votes    SkipVoter
	Songs    SongReporter

	Addr         string
	FrontendURL  string
	CookieSecure bool
	Logger       *log.Logger
}

// Server is the roomcast HTTP API.
type Server struct {
	rooms    RoomDirectory
	sessions SessionBinder
	auth     Authenticator
	player   Playback
	votes    SkipVoter
	songs    SongReporter

	addr        string
	frontendURL string
	router      *BasicRouter
	handler     http.Handler
	logger      *log.Logger
}

// New creates a [Server] and registers every route.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	s := &Server{
		rooms:       opts.Rooms,
		sessions:    opts.Sessions,
		auth:        opts.Auth,
		player:      opts.Player,
		votes:       opts.Votes,
		songs:       opts.Songs,
		addr:        opts.Addr,
		frontendURL: opts.FrontendURL,
		router:      NewBasicRouter(apiPrefix),
		logger:      shared.WithLogger(opts.Logger, "component", "server"),
	}

	s.router.Use(Recover(s.logger), Logging(s.logger))
	s.router.HandleFunc(http.MethodGet, "/health", s.health)
	s.router.Handler(NewCallbackHandler(s.rooms, s.auth, s.frontendURL, s.logger))

	s.router.Use(session.Middleware(session.CookieOpts{Secure: opts.CookieSecure}))
	s.routes()

	s.handler = CORS(s.frontendURL)(s.router)
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc(http.MethodPost, "/create-room", s.createRoom)
	s.router.HandleFunc(http.MethodGet, "/get-room", s.getRoom)
	s.router.HandleFunc(http.MethodGet, "/user-in-room", s.userInRoom)
	s.router.HandleFunc(http.MethodPost, "/join-room", s.joinRoom)
	s.router.HandleFunc(http.MethodPost, "/leave-room", s.leaveRoom)
	s.router.HandleFunc(http.MethodPatch, "/update-room", s.updateRoom)

	s.router.HandleFunc(http.MethodGet, "/current-song", s.currentSong)
	s.router.HandleFunc(http.MethodPut, "/play", s.play)
	s.router.HandleFunc(http.MethodPut, "/pause", s.pause)
	s.router.HandleFunc(http.MethodPost, "/skip", s.skip)
	s.router.HandleFunc(http.MethodPut, "/transfer-playback", s.transferPlayback)

	s.router.HandleFunc(http.MethodGet, "/get-auth-url", s.getAuthURL)
	s.router.HandleFunc(http.MethodGet, "/is-authenticated", s.isAuthenticated)
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
