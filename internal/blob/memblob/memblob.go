// Package memblob is an in-memory blob backend for tests and local
// development.
package memblob

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/eggbucket/admin-api/internal/blob"
)

type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", key, err)
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return "mem://" + key, nil
}

// Object returns a stored payload, for test assertions.
func (s *Store) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

var _ blob.Store = (*Store)(nil)
