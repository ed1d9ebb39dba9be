package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fadedpez/kolovegas/pkg/storage"
)

// Store implements file-based storage for engine snapshots. The whole
// snapshot lives in one JSON file that is loaded once at startup and
// rewritten on every mutation, so a failed write is retried by the next one.
type Store struct {
	path    string
	mu      sync.RWMutex
	blobs   map[storage.Key]json.RawMessage
	options *storage.Options
}

// New creates a new file store instance
func New(options *storage.Options) (*Store, error) {
	if options == nil {
		options = storage.NewOptions()
	}

	s := &Store{
		path:    options.Path,
		blobs:   make(map[storage.Key]json.RawMessage),
		options: options,
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	return s, nil
}

// Put saves or replaces the blob stored under key
func (s *Store) Put(ctx context.Context, key storage.Key, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = value
	return s.save()
}

// Get loads the blob stored under key
func (s *Store) Get(ctx context.Context, key storage.Key) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}

	return blob, nil
}

// Keys lists all stored keys
func (s *Store) Keys(ctx context.Context) ([]storage.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]storage.Key, 0, len(s.blobs))
	for key := range s.blobs {
		keys = append(keys, key)
	}

	return keys, nil
}

// Delete removes the blob stored under key
func (s *Store) Delete(ctx context.Context, key storage.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return s.save()
}

// Close flushes the snapshot to disk
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save()
}

// Helper functions

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &s.blobs)
}

func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(s.blobs)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
