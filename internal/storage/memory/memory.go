// Package memory keeps the ledger snapshot in process memory.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"bilancio/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

var _ storage.SnapshotStore = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewFromFile seeds the store with the snapshot at path. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return New(), nil
	}
	return &Store{data: b}, nil
}

// Load implements storage.SnapshotStore
func (s *Store) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, storage.ErrNotFound
	}
	return bytes.Clone(s.data), nil
}

// Save implements storage.SnapshotStore
func (s *Store) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = bytes.Clone(data)
	if s.data == nil {
		s.data = []byte{}
	}
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
