// Package bolt provides a bbolt-backed cache store.
package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// FileName is the database file created inside the data directory.
const FileName = "cache.bolt"

var bucketCache = []byte("cache")

var _ driven.KeyValueStore = (*Store)(nil)

// Store keeps cache entries in a single bbolt bucket.
type Store struct {
	db   *bbolt.DB
	path string
}

// NewStore opens (or creates) the bolt file in dataDir.
// The file is locked exclusively; a second process waits up to five seconds.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: bolt store needs a data directory", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCache)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the value; bbolt memory is only valid inside the transaction.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketCache).Get([]byte(key)); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return value, value != nil, nil
}

// Put stores or replaces the value under key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty cache key", domain.ErrInvalidInput)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), append([]byte{}, value...))
	})
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Clear drops and recreates the bucket.
func (s *Store) Clear(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketCache); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketCache)
		return err
	})
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Stats counts entries and value bytes.
func (s *Store) Stats(_ context.Context) (driven.CacheStats, error) {
	stats := driven.CacheStats{Backend: string(domain.CacheBackendBolt), Path: s.path}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).ForEach(func(_, v []byte) error {
			stats.Entries++
			stats.Bytes += int64(len(v))
			return nil
		})
	})
	if err != nil {
		return stats, fmt.Errorf("reading cache stats: %w", err)
	}
	return stats, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}
