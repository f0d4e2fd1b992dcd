package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/services"
	"github.com/soundlift/stemx/internal/shared"
)

// storageKey is the well-known key the history list is stored under.
const storageKey = "history"

// DefaultCapacity bounds the history when no capacity is configured.
const DefaultCapacity = 10

// Store reads and writes the persisted history list.
type Store struct {
	db       *sql.DB
	svc      services.SeparationService
	capacity int
}

// NewStore creates a Store backed by db. The service is used for remote
// artifact cleanup on delete and may be nil in read-only contexts.
func NewStore(db *sql.DB, svc services.SeparationService, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{db: db, svc: svc, capacity: capacity}
}

// Capacity returns the configured bound.
func (s *Store) Capacity() int {
	return s.capacity
}

// All returns every history entry, most-recent-first.
func (s *Store) All() ([]models.HistoryEntry, error) {
	return s.load()
}

// Get returns the entry with the given manifest id.
func (s *Store) Get(id string) (*models.HistoryEntry, error) {
	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
}

// Save inserts a new entry for the manifest at the head of the list.
//
// Dedup-and-promote: any existing entry with the same id, or the same name and
// key, is dropped first. The list is then truncated from the tail to capacity.
func (s *Store) Save(manifest models.Manifest) error {
	entries, err := s.load()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.ID == manifest.ID {
			continue
		}
		if e.Name == manifest.Name && e.Key == manifest.Key {
			continue
		}
		kept = append(kept, e)
	}

	entries = append([]models.HistoryEntry{models.NewHistoryEntry(manifest)}, kept...)
	if len(entries) > s.capacity {
		entries = entries[:s.capacity]
	}

	return s.persist(entries)
}

// Delete removes matching entries locally and requests remote artifact
// cleanup. A remote not-found is success; other remote failures abort the
// local removal so the entry stays visible for a retry.
func (s *Store) Delete(ctx context.Context, id string) error {
	entries, err := s.load()
	if err != nil {
		return err
	}

	found := false
	kept := entries[:0]
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	if s.svc != nil {
		if err := s.svc.Delete(ctx, id); err != nil {
			return fmt.Errorf("remote delete failed: %w", err)
		}
	}

	return s.persist(kept)
}

// load decodes the stored list; a missing row is an empty history.
func (s *Store) load() ([]models.HistoryEntry, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM storage WHERE key = ?", storageKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return entries, nil
}

func (s *Store) persist(entries []models.HistoryEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, storageKey, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
