// Package storage selects a cache store implementation by backend name.
package storage

import (
	"fmt"

	"github.com/custodia-labs/docent/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/docent/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/docent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docent/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// OpenCache opens the cache store for backend inside dataDir.
// An empty backend selects SQLite.
func OpenCache(backend domain.CacheBackend, dataDir string) (driven.KeyValueStore, error) {
	switch backend {
	case domain.CacheBackendSQLite, "":
		return sqlite.NewStore(dataDir)
	case domain.CacheBackendBolt:
		return bolt.NewStore(dataDir)
	case domain.CacheBackendFile:
		return file.NewStore(dataDir)
	case domain.CacheBackendMemory:
		return memory.NewKeyValueStore(), nil
	default:
		return nil, fmt.Errorf("%w: cache backend %q", domain.ErrUnsupportedType, backend)
	}
}
