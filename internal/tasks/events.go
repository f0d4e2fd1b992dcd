package tasks

import (
	"fmt"
	"math"
	"time"

	"github.com/soundlift/stemx/internal/models"
)

// EventKind enumerates lifecycle event types.
type EventKind int

const (
	// EventProgress carries a fresh progress/status snapshot while processing.
	EventProgress EventKind = iota
	// EventCompleted carries the manifest of a finished job.
	EventCompleted
	// EventCancelled marks a clean cancellation, locally or remotely initiated.
	// Never surfaced as an error.
	EventCancelled
	// EventFailed carries the user-visible failure message.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventFailed:
		return "failed"
	default:
		return ""
	}
}

// Event is one lifecycle notification emitted by the [Monitor].
type Event struct {
	Kind     EventKind
	Task     models.Task      // snapshot at emission time
	Manifest *models.Manifest // set on EventCompleted
	Message  string           // set on EventFailed
}

func progressEvent(task models.Task) Event {
	return Event{Kind: EventProgress, Task: task}
}

func completedEvent(task models.Task, manifest *models.Manifest) Event {
	return Event{Kind: EventCompleted, Task: task, Manifest: manifest}
}

func cancelledEvent(task models.Task) Event {
	return Event{Kind: EventCancelled, Task: task}
}

func failedEvent(task models.Task, err error) Event {
	return Event{Kind: EventFailed, Task: task, Message: fmt.Sprintf("Separation failed: %v", err)}
}

// EstimateRemaining linearly extrapolates time left from elapsed time and
// progress: remaining = elapsed/progress*100 - elapsed.
//
// ok is false when no sensible estimate exists (progress at either boundary,
// or a non-finite/non-positive result) and callers should display
// "calculating" instead of a duration.
func EstimateRemaining(elapsed time.Duration, progress int) (time.Duration, bool) {
	if progress <= 0 || progress >= 100 {
		return 0, false
	}

	e := elapsed.Seconds()
	remaining := e/float64(progress)*100 - e
	if math.IsNaN(remaining) || math.IsInf(remaining, 0) || remaining <= 0 {
		return 0, false
	}

	return time.Duration(remaining * float64(time.Second)), true
}
