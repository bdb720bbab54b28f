// Package sqlite provides the SQLite-backed cache store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements driven.KeyValueStore over a single cache_entries table, which
// holds embedding vectors and generated quizzes keyed by content hash.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.docent/data/cache.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Writers to the same key are
// last-write-wins; SQLite in WAL mode serialises the writes.
package sqlite
