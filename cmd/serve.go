package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/roomcast/internal/repositories"
	"github.com/desertthunder/roomcast/internal/rooms"
	"github.com/desertthunder/roomcast/internal/server"
	"github.com/desertthunder/roomcast/internal/services"
	"github.com/desertthunder/roomcast/internal/session"
	"github.com/desertthunder/roomcast/internal/shared"
	"github.com/desertthunder/roomcast/internal/ui"
	"github.com/desertthunder/roomcast/internal/votes"
	"github.com/urfave/cli/v3"
)

// app is the wired server and the parts of it the CLI drives directly.
type app struct {
	server    *server.Server
	directory *rooms.Directory
}

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	addr := config.Server.Addr()
	if v := cmd.String("addr"); v != "" {
		addr = v
	}

	db, err := r.openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	a, err := r.build(config, db, addr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ttl := config.Rooms.TTL.Duration; ttl > 0 {
		go r.pruneLoop(ctx, a.directory, ttl)
	}

	r.writePlain("%s %s\n", ui.Title("roomcast"), ui.Help("listening on http://"+addr+"/api"))
	return a.server.Run(ctx)
}

// build wires the Spotify client, stores and coordinators into a [server.Server].
func (r *Runner) build(config *shared.Config, db *sql.DB, addr string) (*app, error) {
	client, err := services.NewSpotifyClient(config.Credentials.Spotify.Map(), services.SpotifyOptions{
		APIURL:   config.Spotify.APIURL,
		AuthURL:  config.Spotify.AuthURL,
		TokenURL: config.Spotify.TokenURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	tokens := services.NewTokenManager(services.TokenManagerOpts{
		Store:   repositories.NewCredentialRepository(db),
		OAuth:   client,
		Logger:  r.logger,
		Timeout: config.Spotify.Timeout.Duration,
	})
	proxy := services.NewProxy(services.ProxyOpts{
		Tokens:    tokens,
		BaseURL:   client.BaseURL(),
		Timeout:   config.Spotify.Timeout.Duration,
		RateLimit: config.Spotify.RateLimit,
		Burst:     config.Spotify.Burst,
		Logger:    r.logger,
	})

	directory := rooms.NewDirectory(rooms.DirectoryOpts{
		Store:      repositories.NewRoomRepository(db),
		CodeLength: config.Rooms.CodeLength,
		Attempts:   config.Rooms.CodeAttempts,
		Logger:     r.logger,
	})
	coordinator := votes.NewCoordinator(proxy, r.logger)

	srv := server.New(server.Options{
		Rooms:        directory,
		Sessions:     session.NewBinder(directory, repositories.NewSessionRepository(db)),
		Auth:         tokens,
		Player:       proxy,
		Votes:        coordinator,
		Songs:        votes.NewReporter(proxy, coordinator),
		Addr:         addr,
		FrontendURL:  config.Server.FrontendURL,
		CookieSecure: config.Server.CookieSecure,
		Logger:       r.logger,
	})

	return &app{server: srv, directory: directory}, nil
}

// pruneLoop deletes rooms idle for longer than ttl until ctx is done.
func (r *Runner) pruneLoop(ctx context.Context, dir *rooms.Directory, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/2, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := dir.Prune(ctx, ttl); err != nil && ctx.Err() == nil {
				r.logger.Error("background prune failed", "error", err)
			}
		}
	}
}
