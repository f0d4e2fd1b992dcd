package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/shared"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, server.Client(), 5*time.Second)
	return client, server
}

func TestClient_Separate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if got := r.URL.Query().Get("task_id"); got != "task-1" {
				t.Errorf("task_id = %s, want task-1", got)
			}

			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("failed to parse multipart form: %v", err)
			}
			f, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("missing file part: %v", err)
			}
			defer f.Close()
			if header.Filename != "song.wav" {
				t.Errorf("filename = %s, want song.wav", header.Filename)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"key": "C#m",
				"stems": {
					"drums":  {"playback": "http://s/d.wav", "download": "http://s/d.zip"},
					"vocals": {"playback": "http://s/v.wav", "download": "http://s/v.zip"}
				}
			}`))
		})
		defer server.Close()

		result, err := client.Separate(context.Background(), "task-1", "song.wav", 9, strings.NewReader("audiodata"))
		if err != nil {
			t.Fatalf("Separate() error = %v", err)
		}
		if result.Key != "C#m" {
			t.Errorf("key = %s, want C#m", result.Key)
		}
		if len(result.Stems) != 2 {
			t.Fatalf("stems = %d, want 2", len(result.Stems))
		}
		if got := result.Stems[models.StemDrums].PlaybackURL; got != "http://s/d.wav" {
			t.Errorf("drums playback = %s", got)
		}
	})

	t.Run("remote cancellation status", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(StatusCancelled)
		})
		defer server.Close()

		_, err := client.Separate(context.Background(), "task-1", "song.wav", 4, strings.NewReader("data"))
		if !errors.Is(err, shared.ErrRemoteCancelled) {
			t.Errorf("Separate() error = %v, want ErrRemoteCancelled", err)
		}
	})

	t.Run("server error with detail", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "separation model crashed"}`))
		})
		defer server.Close()

		_, err := client.Separate(context.Background(), "task-1", "song.wav", 4, strings.NewReader("data"))
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("Separate() error = %v, want ErrAPIRequest", err)
		}
		if !strings.Contains(err.Error(), "separation model crashed") {
			t.Errorf("error should carry the server detail, got: %v", err)
		}
	})

	t.Run("context cancellation aborts the upload", func(t *testing.T) {
		started := make(chan struct{})
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
		})
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		_, err := client.Separate(ctx, "task-1", "song.wav", 4, neverEndingReader{})
		if err == nil {
			t.Fatal("Separate() expected error after context cancellation")
		}
	})
}

// neverEndingReader simulates an upload that outlives its context.
type neverEndingReader struct{}

func (neverEndingReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestClient_Progress(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/progress/task-1" {
			t.Errorf("path = %s, want /progress/task-1", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"progress": 42, "status": "separating"}`))
	})
	defer server.Close()

	report, err := client.Progress(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if report.Progress != 42 || report.Status != "separating" {
		t.Errorf("report = %+v, want 42/separating", report)
	}
}

func TestClient_Cancel(t *testing.T) {
	var called bool
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodPost || r.URL.Path != "/cancel/task-1" {
			t.Errorf("request = %s %s, want POST /cancel/task-1", r.Method, r.URL.Path)
		}
	})
	defer server.Close()

	if err := client.Cancel(context.Background(), "task-1"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !called {
		t.Error("cancel endpoint never hit")
	}
}

func TestClient_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != "/delete/track-1" {
				t.Errorf("request = %s %s, want DELETE /delete/track-1", r.Method, r.URL.Path)
			}
		})
		defer server.Close()

		if err := client.Delete(context.Background(), "track-1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	})

	t.Run("not found counts as success", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "track not found"}`))
		})
		defer server.Close()

		if err := client.Delete(context.Background(), "gone"); err != nil {
			t.Errorf("Delete() error = %v, want not-found treated as success", err)
		}
	})

	t.Run("other failures propagate", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		defer server.Close()

		err := client.Delete(context.Background(), "track-1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("Delete() error = %v, want ErrAPIRequest", err)
		}
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", nil, 0)
	if client.baseURL != "http://localhost:8000" {
		t.Errorf("baseURL = %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("httpClient not defaulted")
	}
	if client.timeout != 30*time.Second {
		t.Errorf("timeout = %v", client.timeout)
	}
}
