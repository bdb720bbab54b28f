// Package file provides a directory-of-files cache store.
//
// Each entry lives in its own file named by the SHA-256 of the key, so keys
// may contain characters that are not valid in file names. Writes go to a
// temporary file and are renamed into place, which makes concurrent writers
// to one key last-write-wins without partial reads.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// DirName is the directory created inside the data directory.
const DirName = "cache"

const entryExt = ".bin"

var _ driven.KeyValueStore = (*Store)(nil)

// Store keeps one file per cache entry.
type Store struct {
	dir string
}

// NewStore creates the cache directory under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: file store needs a data directory", domain.ErrInvalidInput)
	}
	dir := filepath.Join(dataDir, DirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the cache directory.
func (s *Store) Path() string { return s.dir }

func (s *Store) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+entryExt)
}

// Get reads the entry file for key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return data, true, nil
}

// Put writes value atomically.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty cache key", domain.ErrInvalidInput)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.entryPath(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry file for key.
func (s *Store) Delete(_ context.Context, key string) error {
	err := os.Remove(s.entryPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry file. Foreign files in the directory are left alone.
func (s *Store) Clear(ctx context.Context) error {
	return s.walk(func(path string, _ fs.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clearing cache: %w", err)
		}
		return nil
	})
}

// Stats counts entry files and their sizes.
func (s *Store) Stats(_ context.Context) (driven.CacheStats, error) {
	stats := driven.CacheStats{Backend: string(domain.CacheBackendFile), Path: s.dir}
	err := s.walk(func(_ string, info fs.FileInfo) error {
		stats.Entries++
		stats.Bytes += info.Size()
		return nil
	})
	return stats, err
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) walk(fn func(path string, info fs.FileInfo) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("listing cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading cache entry info: %w", err)
		}
		if err := fn(filepath.Join(s.dir, e.Name()), info); err != nil {
			return err
		}
	}
	return nil
}
