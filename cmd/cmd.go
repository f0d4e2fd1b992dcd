// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, separateCommand, historyCommand, playCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// setupCommand handles config and database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter config and initialize the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// separateCommand submits a file and follows the task to a terminal state.
func separateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "separate",
		Aliases: []string{"sep"},
		Usage:   "Upload an audio file for stem separation and wait for the result",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the resulting manifest as JSON",
			},
		},
		Action: r.Separate,
	}
}

// historyCommand handles the persisted result history.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Browse and manage past separations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List past separations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, json, csv, markdown",
						Value:   "text",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "delete",
				Usage: "Delete an entry locally and remove its remote artifacts",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.HistoryDelete,
			},
			{
				Name:  "open",
				Usage: "Open a stem download link in the browser",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "stem",
						Usage: "Stem to download (drums, bass, vocals, other)",
					},
				},
				Action: r.HistoryOpen,
			},
		},
	}
}

// playCommand opens the TUI player on a saved entry.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a past separation in the multitrack player",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Action: r.Play,
	}
}

// apiCommand handles raw service calls for debugging.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls against the separation service",
		Commands: []*cli.Command{
			{
				Name:  "progress",
				Usage: "Fetch raw progress for a task id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "task-id",
					},
				},
				Action: r.APIProgress,
			},
			{
				Name:  "cancel",
				Usage: "Request cancellation of a task id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "task-id",
					},
				},
				Action: r.APICancel,
			},
			{
				Name:  "delete",
				Usage: "Delete remote artifacts for a track id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.APIDelete,
			},
		},
	}
}

// tuiCommand launches the interactive session.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}
