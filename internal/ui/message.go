package ui

import (
	"time"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/tasks"
)

// taskEventMsg wraps one lifecycle [tasks.Event] from the Monitor.
type taskEventMsg tasks.Event

// submitResultMsg reports the outcome of handing a file to the Monitor.
type submitResultMsg struct {
	taskID string
	err    error
}

// historyLoadedMsg carries the persisted history list.
type historyLoadedMsg struct {
	entries []models.HistoryEntry
	err     error
}

// manifestLoadedMsg reports the outcome of loading a manifest into the player.
type manifestLoadedMsg struct {
	manifest models.Manifest
	err      error
}

// entryDeletedMsg reports the outcome of deleting a history entry.
type entryDeletedMsg struct {
	id  string
	err error
}

// tickMsg drives playback position refresh and loop resynchronization.
type tickMsg time.Time
