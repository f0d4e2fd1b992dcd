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
	"testing"
	"time"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/services"
	"github.com/soundlift/stemx/internal/shared"
)

// mockSeparationService scripts the remote service: Separate blocks until
// release is closed (or the context dies, unless ignoreCtx is set), progress
// polls walk the reports slice and hold on the last one.
type mockSeparationService struct {
	mu            sync.Mutex
	result        *services.SeparationResult
	separateErr   error
	release       chan struct{}
	ignoreCtx     bool
	cancelRelease chan struct{}
	reports       []services.ProgressReport
	reportIdx     int
	cancelled     []string
	deleted       []string
}

func (m *mockSeparationService) Separate(ctx context.Context, taskID, fileName string, size int64, r io.Reader) (*services.SeparationResult, error) {
	io.Copy(io.Discard, r)

	if m.release != nil {
		if m.ignoreCtx {
			<-m.release
		} else {
			select {
			case <-m.release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if m.separateErr != nil {
		return nil, m.separateErr
	}
	return m.result, nil
}

func (m *mockSeparationService) Progress(ctx context.Context, taskID string) (*services.ProgressReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == 0 {
		return nil, fmt.Errorf("no reports scripted")
	}
	report := m.reports[m.reportIdx]
	if m.reportIdx < len(m.reports)-1 {
		m.reportIdx++
	}
	return &report, nil
}

func (m *mockSeparationService) Cancel(ctx context.Context, taskID string) error {
	m.mu.Lock()
	m.cancelled = append(m.cancelled, taskID)
	m.mu.Unlock()
	if m.cancelRelease != nil {
		<-m.cancelRelease
	}
	return nil
}

func (m *mockSeparationService) Delete(ctx context.Context, trackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, trackID)
	return nil
}

func (m *mockSeparationService) cancelCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

type mockStore struct {
	mu    sync.Mutex
	saved []models.Manifest
	err   error
}

func (s *mockStore) Save(manifest models.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, manifest)
	return nil
}

func (s *mockStore) savedManifests() []models.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Manifest(nil), s.saved...)
}

func writeTestFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.wav")
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func newTestMonitor(svc services.SeparationService, store HistoryStore) *Monitor {
	return NewMonitor(MonitorOpts{
		Service:      svc,
		Store:        store,
		PollInterval: 5 * time.Millisecond,
	})
}

// waitForEvent drains the monitor stream until an event of the wanted kind
// arrives, failing the test on timeout.
func waitForEvent(t *testing.T, m *Monitor, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestMonitor_Submit_RejectsOversizedFile(t *testing.T) {
	svc := &mockSeparationService{}
	m := NewMonitor(MonitorOpts{
		Service:        svc,
		MaxUploadBytes: 64,
		PollInterval:   5 * time.Millisecond,
	})

	path := writeTestFile(t, 1024)
	_, err := m.Submit(path)
	if !errors.Is(err, shared.ErrFileTooLarge) {
		t.Fatalf("Submit() error = %v, want ErrFileTooLarge", err)
	}

	// No task may exist for a rejected submission.
	if _, ok := m.Snapshot(); ok {
		t.Error("Snapshot() reports a task after a rejected submission")
	}
}

func TestMonitor_Submit_MissingFile(t *testing.T) {
	m := newTestMonitor(&mockSeparationService{}, nil)

	_, err := m.Submit(filepath.Join(t.TempDir(), "nope.wav"))
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Fatalf("Submit() error = %v, want ErrInvalidInput", err)
	}
}

func TestMonitor_Submit_NilService(t *testing.T) {
	m := NewMonitor(MonitorOpts{})

	_, err := m.Submit(writeTestFile(t, 16))
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Fatalf("Submit() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestMonitor_CompletionFlow(t *testing.T) {
	release := make(chan struct{})
	svc := &mockSeparationService{
		release: release,
		result: &services.SeparationResult{
			Key: "C#m",
			Stems: map[models.StemName]models.StemAsset{
				models.StemDrums:  {PlaybackURL: "http://s/d.wav", DownloadURL: "http://s/d.zip"},
				models.StemVocals: {PlaybackURL: "http://s/v.wav", DownloadURL: "http://s/v.zip"},
			},
		},
		reports: []services.ProgressReport{
			{Progress: 0, Status: "analyzing"},
			{Progress: 50, Status: "separating"},
			{Progress: 100, Status: "finalizing"},
		},
	}
	store := &mockStore{}
	m := newTestMonitor(svc, store)

	taskID, err := m.Submit(writeTestFile(t, 128))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if taskID == "" {
		t.Fatal("Submit() returned empty task id")
	}

	ev := waitForEvent(t, m, EventProgress)
	if ev.Task.ID != taskID {
		t.Errorf("progress event task id = %s, want %s", ev.Task.ID, taskID)
	}
	if ev.Task.State != models.TaskProcessing {
		t.Errorf("task state after first poll = %s, want processing", ev.Task.State)
	}

	close(release)

	done := waitForEvent(t, m, EventCompleted)
	if done.Task.State != models.TaskCompleted {
		t.Errorf("completed event state = %s", done.Task.State)
	}
	if done.Task.Progress != 100 {
		t.Errorf("completed event progress = %d, want 100", done.Task.Progress)
	}
	if done.Manifest == nil {
		t.Fatal("completed event has no manifest")
	}
	if done.Manifest.Key != "C#m" {
		t.Errorf("manifest key = %s, want C#m", done.Manifest.Key)
	}
	if done.Manifest.Name != "song" {
		t.Errorf("manifest name = %s, want song", done.Manifest.Name)
	}
	if len(done.Manifest.Stems) != 2 {
		t.Errorf("manifest stems = %d, want 2", len(done.Manifest.Stems))
	}

	saved := store.savedManifests()
	if len(saved) != 1 || saved[0].ID != taskID {
		t.Errorf("store saved = %v, want one manifest for %s", saved, taskID)
	}

	if _, ok := m.Snapshot(); ok {
		t.Error("monitor should be idle after completion")
	}
}

func TestMonitor_Cancel(t *testing.T) {
	release := make(chan struct{})
	svc := &mockSeparationService{
		release: release,
		reports: []services.ProgressReport{{Progress: 40, Status: "separating"}},
	}
	m := newTestMonitor(svc, nil)

	taskID, err := m.Submit(writeTestFile(t, 128))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitForEvent(t, m, EventProgress)

	m.Cancel()

	ev := waitForEvent(t, m, EventCancelled)
	if ev.Task.ID != taskID {
		t.Errorf("cancelled event task id = %s, want %s", ev.Task.ID, taskID)
	}
	if ev.Message != "" {
		t.Errorf("cancellation carried an error message: %q", ev.Message)
	}
	if _, ok := m.Snapshot(); ok {
		t.Error("monitor should be idle once the cancelled event is emitted")
	}

	// The remote cancel is fire-and-forget; give it a moment.
	deadline := time.Now().Add(time.Second)
	for {
		if calls := svc.cancelCalls(); len(calls) == 1 && calls[0] == taskID {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("remote cancel never fired, calls = %v", svc.cancelCalls())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestMonitor_Cancel_Idle(t *testing.T) {
	m := newTestMonitor(&mockSeparationService{}, nil)
	m.Cancel() // must be a no-op

	select {
	case ev := <-m.Events():
		t.Fatalf("idle Cancel() emitted %s event", ev.Kind)
	default:
	}
}

func TestMonitor_CancellingStateVisible(t *testing.T) {
	// The upload ignores its context and the remote cancel is held open, so
	// the task sits in the cancelling state until the remote call resolves.
	release := make(chan struct{})
	cancelRelease := make(chan struct{})
	svc := &mockSeparationService{
		release:       release,
		ignoreCtx:     true,
		cancelRelease: cancelRelease,
		reports:       []services.ProgressReport{{Progress: 40, Status: "separating"}},
	}
	m := newTestMonitor(svc, nil)
	t.Cleanup(func() { close(release) })

	taskID, err := m.Submit(writeTestFile(t, 128))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitForEvent(t, m, EventProgress)

	m.Cancel()
	m.Cancel() // second call during cancellation must be a no-op

	task, ok := m.Snapshot()
	if !ok || task.State != models.TaskCancelling {
		t.Fatalf("Snapshot() = %+v, %v, want the cancelling state visible", task, ok)
	}

	// The transitional state reaches the event stream as well.
	deadline := time.After(2 * time.Second)
	seen := false
	for !seen {
		select {
		case ev := <-m.Events():
			seen = ev.Kind == EventProgress && ev.Task.State == models.TaskCancelling
		case <-deadline:
			t.Fatal("cancelling state never surfaced on the event stream")
		}
	}

	close(cancelRelease)

	ev := waitForEvent(t, m, EventCancelled)
	if ev.Task.ID != taskID {
		t.Errorf("cancelled event task id = %s, want %s", ev.Task.ID, taskID)
	}
	if _, ok := m.Snapshot(); ok {
		t.Error("monitor should be idle once the cancellation resolves")
	}
	if calls := svc.cancelCalls(); len(calls) != 1 {
		t.Errorf("remote cancel calls = %v, want exactly one", calls)
	}
}

func TestMonitor_CompletionSurvivesFullBuffer(t *testing.T) {
	// No consumer drains the stream while the job runs; progress ticks fill
	// the buffer. The completion must still come through when a view
	// re-attaches and starts draining.
	release := make(chan struct{})
	svc := &mockSeparationService{
		release: release,
		result: &services.SeparationResult{
			Stems: map[models.StemName]models.StemAsset{
				models.StemDrums: {PlaybackURL: "http://s/d.wav"},
			},
		},
		reports: []services.ProgressReport{{Progress: 30, Status: "separating"}},
	}
	m := newTestMonitor(svc, nil)

	taskID, err := m.Submit(writeTestFile(t, 128))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(m.events) < cap(m.events) {
		if time.Now().After(deadline) {
			t.Fatal("progress ticks never filled the buffer")
		}
		time.Sleep(time.Millisecond)
	}

	close(release)

	for {
		if _, ok := m.Snapshot(); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("task never reached a terminal state")
		}
		time.Sleep(time.Millisecond)
	}

	ev := waitForEvent(t, m, EventCompleted)
	if ev.Task.ID != taskID {
		t.Errorf("completed event task id = %s, want %s", ev.Task.ID, taskID)
	}
	if ev.Manifest == nil {
		t.Error("completed event has no manifest")
	}
}

func TestMonitor_RemoteCancelledRace(t *testing.T) {
	// The server resolved the race in its own favor and answered 499. That is
	// a clean cancellation, never a failure.
	svc := &mockSeparationService{
		separateErr: fmt.Errorf("upload: %w", shared.ErrRemoteCancelled),
		reports:     []services.ProgressReport{{Progress: 10, Status: "separating"}},
	}
	m := newTestMonitor(svc, nil)

	if _, err := m.Submit(writeTestFile(t, 128)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := waitForEvent(t, m, EventCancelled)
	if ev.Task.State != models.TaskCancelled {
		t.Errorf("event state = %s, want cancelled", ev.Task.State)
	}
	if _, ok := m.Snapshot(); ok {
		t.Error("monitor should be idle after a remote cancellation")
	}
}

func TestMonitor_Failure(t *testing.T) {
	svc := &mockSeparationService{
		separateErr: errors.New("model crashed"),
		reports:     []services.ProgressReport{{Progress: 10, Status: "separating"}},
	}
	m := newTestMonitor(svc, nil)

	if _, err := m.Submit(writeTestFile(t, 128)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := waitForEvent(t, m, EventFailed)
	if !strings.Contains(ev.Message, "model crashed") {
		t.Errorf("failure message = %q, want the underlying cause", ev.Message)
	}
	if _, ok := m.Snapshot(); ok {
		t.Error("monitor should be idle after a failure")
	}
}

func TestMonitor_UnknownStemsDropped(t *testing.T) {
	svc := &mockSeparationService{
		result: &services.SeparationResult{
			Stems: map[models.StemName]models.StemAsset{
				models.StemDrums: {PlaybackURL: "http://s/d.wav"},
				"theremin":       {PlaybackURL: "http://s/t.wav"},
			},
		},
		reports: []services.ProgressReport{{Progress: 90, Status: "finalizing"}},
	}
	m := newTestMonitor(svc, nil)

	if _, err := m.Submit(writeTestFile(t, 128)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := waitForEvent(t, m, EventCompleted)
	if len(ev.Manifest.Stems) != 1 {
		t.Fatalf("manifest stems = %d, want unknown names dropped", len(ev.Manifest.Stems))
	}
	if _, ok := ev.Manifest.Stems[models.StemDrums]; !ok {
		t.Error("known stem missing from manifest")
	}
}

func TestMonitor_PersistFailureDoesNotFailTask(t *testing.T) {
	svc := &mockSeparationService{
		result: &services.SeparationResult{
			Stems: map[models.StemName]models.StemAsset{
				models.StemDrums: {PlaybackURL: "http://s/d.wav"},
			},
		},
		reports: []services.ProgressReport{{Progress: 90, Status: "finalizing"}},
	}
	store := &mockStore{err: errors.New("disk full")}
	m := newTestMonitor(svc, store)

	if _, err := m.Submit(writeTestFile(t, 128)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := waitForEvent(t, m, EventCompleted)
	if ev.Task.State != models.TaskCompleted {
		t.Errorf("task state = %s, want completed despite persist failure", ev.Task.State)
	}
}

func TestMonitor_ResubmitSupersedes(t *testing.T) {
	release := make(chan struct{})
	svc := &mockSeparationService{
		release: release,
		result: &services.SeparationResult{
			Stems: map[models.StemName]models.StemAsset{
				models.StemDrums: {PlaybackURL: "http://s/d.wav"},
			},
		},
		reports: []services.ProgressReport{{Progress: 20, Status: "separating"}},
	}
	m := newTestMonitor(svc, nil)

	first, err := m.Submit(writeTestFile(t, 128))
	if err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	second, err := m.Submit(writeTestFile(t, 128))
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if second == first {
		t.Fatal("resubmission reused the task id")
	}

	task, ok := m.Snapshot()
	if !ok || task.ID != second {
		t.Fatalf("Snapshot() = %+v, want the second task", task)
	}

	close(release)

	ev := waitForEvent(t, m, EventCompleted)
	if ev.Task.ID != second {
		t.Errorf("completed event for %s, want %s (first must stay dead)", ev.Task.ID, second)
	}
}
