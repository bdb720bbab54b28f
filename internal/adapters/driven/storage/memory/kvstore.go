// Package memory provides in-process implementations of driven stores.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

var _ driven.KeyValueStore = (*KeyValueStore)(nil)

// KeyValueStore keeps cache entries in a map for the life of the process.
type KeyValueStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewKeyValueStore creates an empty store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (s *KeyValueStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put stores a copy of value.
func (s *KeyValueStore) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Clear removes every entry.
func (s *KeyValueStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string][]byte)
	return nil
}

// Stats counts entries and value bytes.
func (s *KeyValueStore) Stats(_ context.Context) (driven.CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := driven.CacheStats{Backend: string(domain.CacheBackendMemory), Entries: len(s.values), Path: ":memory:"}
	for _, v := range s.values {
		stats.Bytes += int64(len(v))
	}
	return stats, nil
}

// Close is a no-op.
func (s *KeyValueStore) Close() error { return nil }
