// package services defines interface SeparationService for the remote stem separation API
package services

import (
	"context"
	"io"

	"github.com/soundlift/stemx/internal/models"
)

// StatusCancelled is the reserved HTTP status the service returns when a task
// was cancelled rather than failed.
const StatusCancelled = 499

// SeparationService defines the client-side view of the remote separation service.
type SeparationService interface {
	// Separate uploads an audio file for stem separation and blocks until the
	// job finishes, the context is cancelled, or the server rejects it.
	// The taskID is generated by the caller so progress polling and
	// cancellation can be correlated before the upload completes.
	Separate(ctx context.Context, taskID, fileName string, size int64, r io.Reader) (*SeparationResult, error)

	// Progress fetches the current progress and status label for a task.
	Progress(ctx context.Context, taskID string) (*ProgressReport, error)

	// Cancel requests cancellation of a running task. Best-effort: the server
	// may have already finished.
	Cancel(ctx context.Context, taskID string) error

	// Delete removes the processed artifacts for a track. A not-found response
	// is treated as success so stale history entries can always be cleaned up.
	Delete(ctx context.Context, trackID string) error
}

// SeparationResult is the success payload of a separation job.
type SeparationResult struct {
	Key   string                               `json:"key"`
	Stems map[models.StemName]models.StemAsset `json:"stems"`
}

// ProgressReport is one progress-poll response.
type ProgressReport struct {
	Progress int    `json:"progress"` // 0-100
	Status   string `json:"status"`   // e.g. "uploading", "analyzing", "separating"
}
