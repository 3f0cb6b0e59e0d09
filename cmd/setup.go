package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/roomcast/internal/shared"
	"github.com/desertthunder/roomcast/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
//
// A missing config file is created from the embedded template first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := r.openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	return r.writePlain("%s database ready at %s\n", ui.OK("✓"), config.Database.Path)
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, err := shared.RollbackMigration(ctx, db)
	if err != nil {
		return err
	}
	return r.writePlain("%s rolled back migration %d\n", ui.Warn("↺"), version)
}

// SetupConfig writes the example configuration to --output.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("%s config written to %s\n", ui.OK("✓"), path)
	return r.writePlain("%s\n", ui.Help("Set credentials.spotify or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET before running serve."))
}
