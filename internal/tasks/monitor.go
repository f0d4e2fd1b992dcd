package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/services"
	"github.com/soundlift/stemx/internal/shared"
)

// HistoryStore is the slice of the history package the Monitor needs.
type HistoryStore interface {
	Save(manifest models.Manifest) error
}

// MonitorOpts configures a [Monitor].
type MonitorOpts struct {
	Service        services.SeparationService
	Store          HistoryStore // may be nil; completed manifests then go unpersisted
	Logger         *log.Logger
	MaxUploadBytes int64         // 0 means 200 MB
	PollInterval   time.Duration // 0 means 1s
}

// Monitor owns the single in-flight separation task.
//
// All methods are safe for concurrent use; the TUI, the CLI, and the
// background goroutines all talk to the same Monitor.
type Monitor struct {
	svc            services.SeparationService
	store          HistoryStore
	logger         *log.Logger
	maxUploadBytes int64
	pollInterval   time.Duration

	mu         sync.Mutex
	task       *models.Task
	cancelTask context.CancelFunc

	events chan Event
}

// NewMonitor creates a Monitor with the provided dependencies.
func NewMonitor(opts MonitorOpts) *Monitor {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 * 1024 * 1024
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	return &Monitor{
		svc:            opts.Service,
		store:          opts.Store,
		logger:         opts.Logger,
		maxUploadBytes: opts.MaxUploadBytes,
		pollInterval:   opts.PollInterval,
		events:         make(chan Event, 16),
	}
}

// Events returns the lifecycle event stream.
//
// Sends never block: a slow or absent consumer drops progress ticks rather
// than stalling the task. Terminal outcomes are never dropped; they displace
// stale buffered events when the consumer has fallen behind.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Snapshot returns a copy of the current task, or ok=false when idle.
//
// Views re-attach through this after navigating away mid-job.
func (m *Monitor) Snapshot() (models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.task == nil {
		return models.Task{}, false
	}
	return *m.task, true
}

// Submit validates and uploads the file at path, starting the progress poll
// loop alongside the upload. Returns the generated task id.
//
// Files over the configured limit are rejected with [shared.ErrFileTooLarge]
// before any task exists. If a task is already in flight its transport is
// aborted first; the new submission does not wait for server acknowledgment.
func (m *Monitor) Submit(path string) (string, error) {
	if m.svc == nil {
		return "", fmt.Errorf("%w: separation service not initialized", shared.ErrServiceUnavailable)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if info.Size() > m.maxUploadBytes {
		return "", fmt.Errorf("%w: %s is %d MB (limit %d MB)",
			shared.ErrFileTooLarge, filepath.Base(path), info.Size()/(1024*1024), m.maxUploadBytes/(1024*1024))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	taskID := shared.GenerateID()
	fileName := filepath.Base(path)

	m.mu.Lock()
	if m.cancelTask != nil {
		// Abort the previous task's transport and polling; no waiting.
		m.logger.Warn("aborting in-flight task", "task_id", m.task.ID)
		m.cancelTask()
	}

	// The task context is rooted at Background, not at any view's context:
	// navigating away must not cancel the job.
	ctx, cancel := context.WithCancel(context.Background())
	m.task = &models.Task{
		ID:        taskID,
		FileName:  fileName,
		State:     models.TaskSubmitting,
		Status:    "uploading",
		StartedAt: time.Now(),
	}
	m.cancelTask = cancel
	m.mu.Unlock()

	m.logger.Info("submitting file for separation", "task_id", taskID, "file", fileName, "bytes", info.Size())

	go m.pollLoop(ctx, taskID)
	go m.run(ctx, cancel, taskID, fileName, info.Size(), f)

	return taskID, nil
}

// Cancel aborts the in-flight task, if any.
//
// The local transport is torn down immediately and a best-effort remote
// cancel is fired. The task stays visible in the cancelling state until the
// transport unwinds or the remote call resolves, whichever happens first;
// the remote outcome never turns a cancellation into a failure.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	if m.task == nil || m.task.State == models.TaskCancelling {
		m.mu.Unlock()
		return
	}

	m.task.State = models.TaskCancelling
	m.task.Status = "cancelling"
	task := *m.task
	cancel := m.cancelTask
	m.cancelTask = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	m.logger.Info("task cancelled by user", "task_id", task.ID)
	m.send(progressEvent(task))

	// Best-effort: the server may already be done, or unreachable. The
	// transport teardown usually resolves the terminal state first; this
	// goroutine only does so when the upload outlives its context.
	go func() {
		if err := m.svc.Cancel(context.Background(), task.ID); err != nil {
			m.logger.Debug("remote cancel failed", "task_id", task.ID, "error", err)
		}

		m.mu.Lock()
		if m.task == nil || m.task.ID != task.ID {
			m.mu.Unlock()
			return
		}
		m.task = nil
		m.mu.Unlock()

		task.State = models.TaskCancelled
		m.send(cancelledEvent(task))
	}()
}

// run performs the upload and resolves the terminal state.
func (m *Monitor) run(ctx context.Context, cancel context.CancelFunc, taskID, fileName string, size int64, f io.ReadCloser) {
	defer f.Close()
	defer cancel() // tears down the poll loop with the upload, on every path

	result, err := m.svc.Separate(ctx, taskID, fileName, size, f)

	m.mu.Lock()
	current := m.task != nil && m.task.ID == taskID
	var task models.Task
	if current {
		task = *m.task
		m.task = nil
		m.cancelTask = nil
	}
	m.mu.Unlock()

	if !current {
		// Cancel or a newer submission already owns the state; a late
		// response must not resurrect the task.
		m.logger.Debug("discarding response for superseded task", "task_id", taskID)
		return
	}

	switch {
	case err == nil:
		manifest := m.buildManifest(taskID, fileName, result)
		m.persist(manifest)
		task.State = models.TaskCompleted
		task.Progress = 100
		m.logger.Info("separation completed", "task_id", taskID, "stems", len(manifest.Stems))
		m.send(completedEvent(task, &manifest))

	case errors.Is(err, shared.ErrRemoteCancelled):
		// The server resolved a cancellation race in its own favor. Clean
		// terminal transition, no error surfaced.
		task.State = models.TaskCancelled
		m.logger.Info("task reported cancelled by server", "task_id", taskID)
		m.send(cancelledEvent(task))

	case errors.Is(err, context.Canceled):
		// Cancel() tore down the transport; whichever of this path and the
		// remote cancel goroutine claims the task first emits the event.
		task.State = models.TaskCancelled
		m.send(cancelledEvent(task))

	default:
		task.State = models.TaskFailed
		m.logger.Error("separation failed", "task_id", taskID, "error", err)
		m.send(failedEvent(task, err))
	}
}

// pollLoop fetches progress for the task until its context is cancelled.
// Poll failures are transient: logged and skipped.
func (m *Monitor) pollLoop(ctx context.Context, taskID string) {
	limiter := rate.NewLimiter(rate.Every(m.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		report, err := m.svc.Progress(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Debug("progress poll failed", "task_id", taskID, "error", err)
			continue
		}

		m.mu.Lock()
		if m.task == nil || m.task.ID != taskID {
			m.mu.Unlock()
			return
		}
		if m.task.State == models.TaskSubmitting {
			m.task.State = models.TaskProcessing
		}
		m.task.Progress = report.Progress
		m.task.Status = report.Status
		task := *m.task
		m.mu.Unlock()

		m.send(progressEvent(task))
	}
}

// buildManifest turns a service result into the manifest handed to the history
// store and the player.
func (m *Monitor) buildManifest(taskID, fileName string, result *services.SeparationResult) models.Manifest {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	stems := make(map[models.StemName]models.StemAsset, len(result.Stems))
	for stem, asset := range result.Stems {
		if !models.ValidStem(stem) {
			m.logger.Warn("dropping unknown stem in response", "stem", stem)
			continue
		}
		stems[stem] = asset
	}

	return models.Manifest{
		ID:    taskID,
		Name:  name,
		Key:   result.Key,
		Stems: stems,
	}
}

// persist saves the manifest to history. Best-effort: persistence failures
// never block the primary flow.
func (m *Monitor) persist(manifest models.Manifest) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(manifest); err != nil {
		m.logger.Error("failed to persist history entry", "track_id", manifest.ID, "error", err)
	}
}

// send delivers an event without blocking. Progress ticks are droppable; a
// full channel loses the tick rather than stalling the task. Terminal
// outcomes must reach whoever drains the stream next, so they evict buffered
// events until the send lands.
func (m *Monitor) send(ev Event) {
	if ev.Kind == EventProgress {
		select {
		case m.events <- ev:
		default:
			m.logger.Debug("dropping progress event", "task_id", ev.Task.ID)
		}
		return
	}

	for {
		select {
		case m.events <- ev:
			return
		default:
		}
		select {
		case stale := <-m.events:
			m.logger.Debug("evicting buffered event for terminal outcome", "kind", stale.Kind)
		default:
		}
	}
}
