package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/soundlift/stemx/internal/formatter"
	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/shared"
)

// HistoryList prints the persisted history in the requested format.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.ensureStore()
	if err != nil {
		return err
	}

	entries, err := store.All()
	if err != nil {
		return err
	}

	out, err := formatter.Export(entries, cmd.String("format"))
	if err != nil {
		return err
	}

	return r.writePlain("%s", out)
}

// HistoryDelete removes an entry locally and asks the service to drop the
// remote artifacts. A remote not-found still deletes locally.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: entry id", shared.ErrMissingArgument)
	}

	store, err := r.ensureStore()
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, id); err != nil {
		return err
	}

	r.writePlainln("✓ deleted %s", id)
	return nil
}

// HistoryOpen opens a stem's download URL in the system browser.
func (r *Runner) HistoryOpen(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: entry id", shared.ErrMissingArgument)
	}

	store, err := r.ensureStore()
	if err != nil {
		return err
	}

	entry, err := store.Get(id)
	if err != nil {
		return err
	}

	stem := models.StemName(cmd.String("stem"))
	if stem == "" {
		stems := entry.PresentStems()
		if len(stems) == 0 {
			return fmt.Errorf("%w: entry %s has no stems", shared.ErrInvalidInput, id)
		}
		stem = stems[0]
	}

	asset, ok := entry.Stems[stem]
	if !ok {
		return fmt.Errorf("%w: %s in entry %s", shared.ErrStemNotFound, stem, id)
	}

	r.logger.Info("opening download", "track_id", id, "stem", stem)
	return shared.OpenBrowser(asset.DownloadURL)
}
