package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/soundlift/stemx/internal/player"
	"github.com/soundlift/stemx/internal/shared"
	"github.com/soundlift/stemx/internal/ui"
)

// TUI launches the interactive terminal session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	model, pl, err := r.buildSession(ctx)
	if err != nil {
		return err
	}
	defer pl.Close()

	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// Play loads one saved entry and opens the TUI directly on the player view.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
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

	model, pl, err := r.buildSession(ctx)
	if err != nil {
		return err
	}
	defer pl.Close()

	if err := pl.Load(ctx, entry.Manifest); err != nil {
		return err
	}
	model.StartAtPlayer()

	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// buildSession wires the player, mixer, monitor, and store into a fresh TUI
// model. Logs go to a file so they don't interfere with rendering.
func (r *Runner) buildSession(ctx context.Context) (*ui.Model, *player.Player, error) {
	fileLogger, err := shared.NewFileLogger("./tmp/stemx-tui.log")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	store, err := r.ensureStore()
	if err != nil {
		return nil, nil, err
	}

	monitor, err := r.ensureMonitor()
	if err != nil {
		return nil, nil, err
	}

	open, err := player.NewOpener(player.OpenerOpts{
		Logger:     fileLogger,
		HTTPClient: r.httpClient,
		CacheDir:   r.config.Audio.CacheDir,
		Buffer:     time.Duration(r.config.Audio.BufferMS) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	pl := player.NewPlayer(open, fileLogger)
	mixer := player.NewMixer(pl, fileLogger)

	model := ui.NewModel(ctx, ui.Deps{
		Monitor: monitor,
		Player:  pl,
		Mixer:   mixer,
		Store:   store,
		Logger:  fileLogger,
	})

	return model, pl, nil
}
