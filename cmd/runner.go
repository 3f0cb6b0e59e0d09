package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/shared"
	"github.com/desertthunder/roomcast/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	errors   io.Writer
	envFiles []string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Logger   *log.Logger
	Output   io.Writer
	Errors   io.Writer // where command failures are reported, stderr when nil
	EnvFiles []string // dotenv files overlaid on the config, ".env" when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Errors == nil {
		opts.Errors = os.Stderr
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env"}
	}

	return &Runner{
		config:   opts.Config,
		logger:   opts.Logger,
		output:   opts.Output,
		errors:   opts.Errors,
		envFiles: opts.EnvFiles,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){serveCommand, setupCommand, roomsCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the config for a command: the file named by --config when it exists,
// otherwise the config the runner was created with. Environment overrides and the log level
// are applied to the result.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	config := r.config
	if path := cmd.String("config"); path != "" {
		if _, err := os.Stat(path); err == nil {
			if config, err = shared.LoadConfig(path); err != nil {
				return nil, err
			}
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	config.ApplyEnv(r.envFiles...)

	if err := shared.SetLogLevel(r.logger, config.Server.LogLevel); err != nil {
		return nil, err
	}
	return config, nil
}

// openDatabase opens the configured database and brings its schema up to date.
func (r *Runner) openDatabase(ctx context.Context, config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	applied, err := shared.RunMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		r.logger.Info("applied migrations", "versions", applied)
	}
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

// fail reports a command error and returns the process exit code.
func (r *Runner) fail(err error) int {
	r.logger.Debug("command failed", "error", err)
	fmt.Fprintf(r.errors, "%s %v\n", ui.Err("error:"), err)
	return 1
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
