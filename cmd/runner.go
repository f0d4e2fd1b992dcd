package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/soundlift/stemx/internal/history"
	"github.com/soundlift/stemx/internal/services"
	"github.com/soundlift/stemx/internal/shared"
	"github.com/soundlift/stemx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	svc        services.SeparationService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	store   *history.Store
	monitor *tasks.Monitor
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Service    services.SeparationService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Service == nil {
		opts.Service = services.NewClient(opts.Config.Service.BaseURL, opts.HTTPClient, opts.Config.RequestTimeout())
	}

	return &Runner{
		config:     opts.Config,
		svc:        opts.Service,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger (and the monitor's, if one exists).
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.monitor = nil // rebuilt with the new logger on next use
}

// ensureStore lazily opens the database, runs migrations, and builds the
// history store.
func (r *Runner) ensureStore() (*history.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	r.db = db
	r.store = history.NewStore(db, r.svc, r.config.History.Capacity)
	return r.store, nil
}

// ensureMonitor lazily builds the task lifecycle monitor on top of the store.
func (r *Runner) ensureMonitor() (*tasks.Monitor, error) {
	if r.monitor != nil {
		return r.monitor, nil
	}

	store, err := r.ensureStore()
	if err != nil {
		return nil, err
	}

	r.monitor = tasks.NewMonitor(tasks.MonitorOpts{
		Service:        r.svc,
		Store:          store,
		Logger:         r.logger,
		MaxUploadBytes: r.config.MaxUploadBytes(),
		PollInterval:   r.config.PollInterval(),
	})
	return r.monitor, nil
}

// Close releases the database connection, if open.
func (r *Runner) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain(format+"\n", args...)
}
