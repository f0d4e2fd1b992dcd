package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/soundlift/stemx/internal/shared"
)

// Setup writes a starter config file (unless one exists) and initializes the
// local database with all migrations applied.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if _, err := os.Stat(path); err == nil {
		r.writePlainln("config file already exists at %s, leaving it alone", path)
	} else {
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.writePlainln("✓ wrote %s", path)
	}

	if _, err := r.ensureStore(); err != nil {
		return err
	}

	r.writePlainln("✓ database ready at %s", r.config.Database.Path)
	return nil
}
