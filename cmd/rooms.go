package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/roomcast/internal/formatter"
	"github.com/desertthunder/roomcast/internal/repositories"
	"github.com/desertthunder/roomcast/internal/rooms"
	"github.com/desertthunder/roomcast/internal/shared"
	"github.com/desertthunder/roomcast/internal/ui"
	"github.com/urfave/cli/v3"
)

// directory opens the database behind --config and returns a room [rooms.Directory] over it.
// The returned func closes the database.
func (r *Runner) directory(ctx context.Context, cmd *cli.Command) (*rooms.Directory, func(), error) {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	db, err := r.openDatabase(ctx, config)
	if err != nil {
		return nil, nil, err
	}

	dir := rooms.NewDirectory(rooms.DirectoryOpts{
		Store:      repositories.NewRoomRepository(db),
		CodeLength: config.Rooms.CodeLength,
		Attempts:   config.Rooms.CodeAttempts,
		Logger:     r.logger,
	})
	return dir, func() { db.Close() }, nil
}

// RoomsList prints every room in the requested format.
func (r *Runner) RoomsList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	dir, closeDB, err := r.directory(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := dir.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	if format == formatter.FormatText {
		r.writePlain("%s\n\n", ui.Title("Rooms"))
	}
	return formatter.Export(r.output, list, format)
}

// RoomsShow prints a single room as JSON.
func (r *Runner) RoomsShow(ctx context.Context, cmd *cli.Command) error {
	code := cmd.StringArg("code")
	if code == "" {
		return fmt.Errorf("%w: room code", shared.ErrMissingArgument)
	}

	dir, closeDB, err := r.directory(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	room, err := dir.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	return r.writeJSON(room, cmd.Bool("pretty"))
}

// RoomsPrune deletes rooms idle for longer than --older-than.
func (r *Runner) RoomsPrune(ctx context.Context, cmd *cli.Command) error {
	dir, closeDB, err := r.directory(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := dir.Prune(ctx, cmd.Duration("older-than"))
	if err != nil {
		return err
	}

	if n == 0 {
		return r.writePlain("%s\n", ui.Help("No stale rooms"))
	}
	return r.writePlain("%s pruned %d room(s)\n", ui.OK("✓"), n)
}
