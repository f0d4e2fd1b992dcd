// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/services"
)

// MockService is a configurable test double for [services.SeparationService].
type MockService struct {
	mu sync.Mutex

	SeparateResult *services.SeparationResult
	SeparateErr    error
	SeparateBlock  chan struct{} // when set, Separate waits for it or the context
	ProgressResult *services.ProgressReport
	ProgressErr    error
	CancelErr      error
	DeleteErr      error

	SeparateCalls []string
	CancelCalls   []string
	DeleteCalls   []string
}

func (m *MockService) Separate(ctx context.Context, taskID, fileName string, size int64, r io.Reader) (*services.SeparationResult, error) {
	io.Copy(io.Discard, r)
	m.mu.Lock()
	m.SeparateCalls = append(m.SeparateCalls, taskID)
	m.mu.Unlock()
	if m.SeparateBlock != nil {
		select {
		case <-m.SeparateBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.SeparateErr != nil {
		return nil, m.SeparateErr
	}
	if m.SeparateResult != nil {
		return m.SeparateResult, nil
	}
	return &services.SeparationResult{
		Stems: map[models.StemName]models.StemAsset{
			models.StemDrums: {PlaybackURL: "http://mock/drums.wav", DownloadURL: "http://mock/drums.zip"},
		},
	}, nil
}

func (m *MockService) Progress(ctx context.Context, taskID string) (*services.ProgressReport, error) {
	if m.ProgressErr != nil {
		return nil, m.ProgressErr
	}
	if m.ProgressResult != nil {
		return m.ProgressResult, nil
	}
	return &services.ProgressReport{Progress: 100, Status: "done"}, nil
}

func (m *MockService) Cancel(ctx context.Context, taskID string) error {
	m.mu.Lock()
	m.CancelCalls = append(m.CancelCalls, taskID)
	m.mu.Unlock()
	return m.CancelErr
}

// RecordedCancels copies the cancel call log for assertions that race with
// detached goroutines.
func (m *MockService) RecordedCancels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CancelCalls...)
}

func (m *MockService) Delete(ctx context.Context, trackID string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, trackID)
	m.mu.Unlock()
	return m.DeleteErr
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
