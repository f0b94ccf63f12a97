package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"stockwatch/models"
)

// StorageKey is the top-level key the watchlist collection is stored under
const StorageKey = "stockwatch_watchlists"

// FileStore keeps watchlists in a single JSON document on disk. Every call
// reads the file, so edits made by another process are picked up.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() ([]models.Watchlist, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Watchlist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlists: %w", err)
	}
	if len(data) == 0 {
		return []models.Watchlist{}, nil
	}

	var doc map[string][]models.Watchlist
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode watchlists: %w", err)
	}
	watchlists := doc[StorageKey]
	if watchlists == nil {
		watchlists = []models.Watchlist{}
	}
	for i := range watchlists {
		if watchlists[i].Symbols == nil {
			watchlists[i].Symbols = []string{}
		}
	}
	return watchlists, nil
}

// save writes to a temp file and renames it over the original
func (s *FileStore) save(watchlists []models.Watchlist) error {
	data, err := json.MarshalIndent(map[string][]models.Watchlist{StorageKey: watchlists}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode watchlists: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watchlist directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".watchlists-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write watchlists: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write watchlists: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace watchlists file: %w", err)
	}
	return nil
}

// ListWatchlists returns all watchlists in stored order
func (s *FileStore) ListWatchlists(ctx context.Context) ([]models.Watchlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// GetWatchlist returns a single watchlist by ID
func (s *FileStore) GetWatchlist(ctx context.Context, id uuid.UUID) (*models.Watchlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	watchlists, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range watchlists {
		if watchlists[i].ID == id {
			return &watchlists[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, models.ErrWatchlistNotFound)
}

// CreateWatchlist appends a watchlist
func (s *FileStore) CreateWatchlist(ctx context.Context, w *models.Watchlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	watchlists, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range watchlists {
		if existing.ID == w.ID {
			return fmt.Errorf("watchlist %s already exists", w.ID)
		}
	}
	return s.save(append(watchlists, *w))
}

// UpdateWatchlist replaces a stored watchlist
func (s *FileStore) UpdateWatchlist(ctx context.Context, w *models.Watchlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	watchlists, err := s.load()
	if err != nil {
		return err
	}
	for i := range watchlists {
		if watchlists[i].ID == w.ID {
			watchlists[i] = *w
			return s.save(watchlists)
		}
	}
	return fmt.Errorf("%s: %w", w.ID, models.ErrWatchlistNotFound)
}

// ModifyWatchlist applies fn to a stored watchlist and saves the result. The
// store lock is held from load to save so concurrent modifications are not lost.
func (s *FileStore) ModifyWatchlist(ctx context.Context, id uuid.UUID, fn func(*models.Watchlist) error) (*models.Watchlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	watchlists, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range watchlists {
		if watchlists[i].ID != id {
			continue
		}
		w := watchlists[i]
		w.Symbols = append([]string(nil), w.Symbols...)
		if err := fn(&w); err != nil {
			return nil, err
		}
		watchlists[i] = w
		if err := s.save(watchlists); err != nil {
			return nil, err
		}
		return &w, nil
	}
	return nil, fmt.Errorf("%s: %w", id, models.ErrWatchlistNotFound)
}

// DeleteWatchlist removes a watchlist
func (s *FileStore) DeleteWatchlist(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	watchlists, err := s.load()
	if err != nil {
		return err
	}
	for i := range watchlists {
		if watchlists[i].ID == id {
			return s.save(append(watchlists[:i], watchlists[i+1:]...))
		}
	}
	return fmt.Errorf("%s: %w", id, models.ErrWatchlistNotFound)
}
