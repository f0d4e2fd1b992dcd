package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/soundlift/stemx/internal/shared"
	"github.com/soundlift/stemx/internal/tasks"
)

// Separate submits a file for separation and follows the task until it
// reaches a terminal state. Interrupting the command (Ctrl+C) cancels the
// task rather than orphaning it.
func (r *Runner) Separate(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: file path", shared.ErrMissingArgument)
	}

	monitor, err := r.ensureMonitor()
	if err != nil {
		return err
	}

	taskID, err := monitor.Submit(path)
	if err != nil {
		return err
	}

	r.writePlainln("task %s submitted", taskID)

	done := ctx.Done()
	lastProgress := -1
	for {
		select {
		case <-done:
			monitor.Cancel()
			// Keep draining; the cancelled event closes the loop. Nil the
			// channel so this case cannot fire again.
			done = nil

		case ev := <-monitor.Events():
			switch ev.Kind {
			case tasks.EventProgress:
				if ev.Task.Progress != lastProgress {
					lastProgress = ev.Task.Progress
					r.writePlainln("  %3d%% %s (%s)", ev.Task.Progress, ev.Task.Status, remainingLabel(ev.Task.Elapsed(), ev.Task.Progress))
				}

			case tasks.EventCompleted:
				r.writePlainln("✓ separation complete: %s", ev.Task.FileName)
				if ev.Manifest != nil {
					if cmd.Bool("json") {
						return r.writeJSON(ev.Manifest, true)
					}
					for _, stem := range ev.Manifest.PresentStems() {
						r.writePlainln("  %-7s %s", stem, ev.Manifest.Stems[stem].DownloadURL)
					}
					if ev.Manifest.Key != "" {
						r.writePlainln("  key: %s", ev.Manifest.Key)
					}
				}
				return nil

			case tasks.EventCancelled:
				r.writePlainln("separation cancelled")
				return nil

			case tasks.EventFailed:
				return fmt.Errorf("%s", ev.Message)
			}
		}
	}
}

func remainingLabel(elapsed time.Duration, progress int) string {
	d, ok := tasks.EstimateRemaining(elapsed, progress)
	if !ok {
		return "calculating"
	}
	return "~" + shared.FormatDuration(d)
}
