package archive

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps objects in a map. Development and testing only.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// PutObject stores data under path and returns a mem:// URI.
func (s *MemoryStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	payload, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read object data: %w", err)
	}
	s.mu.Lock()
	s.objects[path] = payload
	s.mu.Unlock()
	return "mem://" + path, nil
}

// Object returns a stored object's bytes, for test assertions.
func (s *MemoryStore) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.objects[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), payload...), true
}
