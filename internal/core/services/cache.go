package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

var _ driving.CacheService = (*CacheService)(nil)

// CacheService inspects and empties the persistent embedding cache.
type CacheService struct {
	store driven.KeyValueStore
}

// NewCacheService wraps store.
func NewCacheService(store driven.KeyValueStore) *CacheService {
	return &CacheService{store: store}
}

// Stats reports the cache's size.
func (s *CacheService) Stats(ctx context.Context) (driving.CacheStats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return driving.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return driving.CacheStats{Backend: st.Backend, Entries: st.Entries, Bytes: st.Bytes, Path: st.Path}, nil
}

// Clear removes every cached entry, embeddings and quizzes alike.
func (s *CacheService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	logger.Info("cache cleared")
	return nil
}
