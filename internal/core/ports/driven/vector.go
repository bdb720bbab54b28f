package driven

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// VectorIndex is a session-scoped nearest-neighbour index over embedded chunks.
type VectorIndex interface {
	// Build replaces the whole index with the given chunks.
	// Every chunk must carry an embedding of the same dimension.
	Build(ctx context.Context, chunks []domain.Chunk) error

	// Query returns at most k chunks nearest to vector, nearest first.
	// Equal scores keep the order chunks were given to Build.
	Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)

	// Len returns the number of indexed chunks.
	Len() int
}

// VectorIndexFactory creates an empty index for a new session.
type VectorIndexFactory func() VectorIndex
