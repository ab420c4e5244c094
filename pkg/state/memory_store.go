package state

import (
	"context"
	"sync"

	"github.com/goliatone/go-content/layering"
)

// MemoryStore is the in-process Store used in tests and single-session
// embeddings. Reads return deep copies so callers cannot alias live state.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]map[string]any
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]map[string]any)}
}

func (s *MemoryStore) Get(_ context.Context, key, field string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.keys[key]
	if !ok {
		return nil, false, nil
	}
	value, ok := fields[field]
	if !ok {
		return nil, false, nil
	}
	return layering.CloneValue(value), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.keys[key]
	if !ok {
		fields = make(map[string]any)
		s.keys[key] = fields
	}
	fields[field] = layering.CloneValue(value)
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context, key string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.keys[key]
	if !ok {
		return map[string]any{}, nil
	}
	return layering.CloneAttributes(fields), nil
}

func (s *MemoryStore) SnapshotScope(_ context.Context, scope string) (map[string]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]any)
	for key, fields := range s.keys {
		rest, ok := relativeKey(scope, key)
		if !ok {
			continue
		}
		out[rest] = layering.CloneAttributes(fields)
	}
	return out, nil
}
