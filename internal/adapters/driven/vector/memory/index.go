// Package memory provides an exact in-memory nearest-neighbour index.
//
// Every query scans all entries. Sessions hold one document or one crawled
// site, so the index stays small enough that a flat scan beats maintaining
// a graph.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	chunk domain.Chunk
	norm  float64
}

// Index is a flat vector index. It is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	metric  domain.DistanceMetric
	dim     int
	entries []entry
}

// New creates an empty index using metric. An unknown metric falls back to cosine.
func New(metric domain.DistanceMetric) *Index {
	if !metric.IsValid() {
		metric = domain.MetricCosine
	}
	return &Index{metric: metric}
}

// Factory returns a driven.VectorIndexFactory for metric.
func Factory(metric domain.DistanceMetric) driven.VectorIndexFactory {
	return func() driven.VectorIndex { return New(metric) }
}

// Build replaces the index contents. On error the previous contents are kept.
func (x *Index) Build(_ context.Context, chunks []domain.Chunk) error {
	entries := make([]entry, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	dim := 0

	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", domain.ErrInvalidInput, i)
		}
		if dim == 0 {
			dim = len(c.Embedding)
		} else if len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %d has dimension %d, want %d", domain.ErrInvalidInput, i, len(c.Embedding), dim)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate chunk %s", domain.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = struct{}{}
		entries = append(entries, entry{chunk: c, norm: norm(c.Embedding)})
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = entries
	x.dim = dim
	return nil
}

// Query returns at most k chunks, most similar first. Equal scores keep build order.
func (x *Index) Query(_ context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.entries) == 0 {
		return nil, nil
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrInvalidInput, len(vector), x.dim)
	}

	qnorm := norm(vector)
	hits := make([]domain.ScoredChunk, len(x.entries))
	for i, e := range x.entries {
		hits[i] = domain.ScoredChunk{Chunk: e.chunk, Score: x.similarity(vector, qnorm, e)}
	}

	slices.SortStableFunc(hits, func(a, b domain.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	return hits[:min(k, len(hits))], nil
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Metric returns the comparison in use.
func (x *Index) Metric() domain.DistanceMetric { return x.metric }

func (x *Index) similarity(q []float32, qnorm float64, e entry) float64 {
	switch x.metric {
	case domain.MetricEuclidean:
		return 1 / (1 + euclidean(q, e.chunk.Embedding))
	default:
		if qnorm == 0 || e.norm == 0 {
			return 0
		}
		return dot(q, e.chunk.Embedding) / (qnorm * e.norm)
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func euclidean(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return math.Sqrt(s)
}
