package driven

import "context"

// KeyValueStore is a persistent byte cache.
// A missing key is reported with ok=false, never as an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key. Concurrent writers to one key are last-write-wins.
	Put(ctx context.Context, key string, value []byte) error

	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	Stats(ctx context.Context) (CacheStats, error)

	Close() error
}

// CacheStats describes the store's contents.
type CacheStats struct {
	Backend string
	Entries int
	Bytes   int64
	Path    string
}
