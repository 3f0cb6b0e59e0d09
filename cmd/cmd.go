// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the roomcast HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.host and server.port",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path to write the config file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// roomsCommand handles room administration
func roomsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "Inspect and clean up rooms",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List rooms, oldest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv or json",
						Value:   "text",
					},
				},
				Action: r.RoomsList,
			},
			{
				Name:  "show",
				Usage: "Show a single room",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "code"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.RoomsShow,
			},
			{
				Name:  "prune",
				Usage: "Delete rooms not updated within a duration",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:     "older-than",
						Usage:    "Delete rooms idle for longer than this (e.g. 24h)",
						Required: true,
					},
				},
				Action: r.RoomsPrune,
			},
		},
	}
}
