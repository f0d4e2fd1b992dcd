package models

import "time"

// TaskState enumerates the lifecycle states of a separation task.
type TaskState int

const (
	TaskIdle TaskState = iota
	TaskSubmitting
	TaskProcessing
	TaskCancelling
	TaskCompleted
	TaskCancelled
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskSubmitting:
		return "submitting"
	case TaskProcessing:
		return "processing"
	case TaskCancelling:
		return "cancelling"
	case TaskCompleted:
		return "completed"
	case TaskCancelled:
		return "cancelled"
	case TaskFailed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether the state ends the task lifecycle.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled || s == TaskFailed
}

// Task tracks one in-flight separation job.
//
// The ID is generated client-side before the upload starts so progress polling
// and cancellation can be keyed to it even if the initial request has not yet
// reached the server.
type Task struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	State     TaskState `json:"state"`
	Progress  int       `json:"progress"` // 0-100
	Status    string    `json:"status"`   // server-reported status label
	StartedAt time.Time `json:"started_at"`
}

// Elapsed returns the time since the task was submitted.
func (t *Task) Elapsed() time.Duration {
	return time.Since(t.StartedAt)
}
