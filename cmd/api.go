package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/soundlift/stemx/internal/shared"
)

// APIProgress fetches raw progress for a task id and prints it as JSON.
func (r *Runner) APIProgress(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task-id")
	if taskID == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	report, err := r.svc.Progress(ctx, taskID)
	if err != nil {
		return err
	}

	return r.writeJSON(report, true)
}

// APICancel fires a raw cancel for a task id.
func (r *Runner) APICancel(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task-id")
	if taskID == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	if err := r.svc.Cancel(ctx, taskID); err != nil {
		return err
	}

	r.writePlainln("✓ cancellation requested for %s", taskID)
	return nil
}

// APIDelete removes remote artifacts for a track id. Not-found counts as
// success, matching the service contract.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	if err := r.svc.Delete(ctx, id); err != nil {
		return err
	}

	r.writePlainln("✓ deleted remote artifacts for %s", id)
	return nil
}
