package memory

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func chunk(id string, vec ...float32) domain.Chunk {
	return domain.Chunk{ID: id, Content: id, Embedding: vec}
}

func ids(hits []domain.ScoredChunk) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk.ID
	}
	return out
}

func TestQuery_CosineOrdersNearestFirst(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Build(ctx, []domain.Chunk{
		chunk("east", 1, 0),
		chunk("north", 0, 1),
		chunk("northeast", 1, 1),
	}))

	hits, err := idx.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"east", "northeast"}, ids(hits))
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestQuery_EuclideanUsesDistance(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricEuclidean)
	require.NoError(t, idx.Build(ctx, []domain.Chunk{
		chunk("far", 10, 10),
		chunk("near", 1, 1),
		chunk("same-direction-far", 5, 5),
	}))

	hits, err := idx.Query(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"near", "same-direction-far", "far"}, ids(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestQuery_TiesKeepBuildOrder(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Build(ctx, []domain.Chunk{
		chunk("c0", 1, 0),
		chunk("c1", 2, 0),
		chunk("c2", 3, 0),
		chunk("c3", 0, 1),
	}))

	hits, err := idx.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1", "c2"}, ids(hits))
}

func TestQuery_Bounds(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	hits, err := idx.Query(ctx, []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits, "empty index")

	require.NoError(t, idx.Build(ctx, []domain.Chunk{chunk("a", 1, 0), chunk("b", 0, 1)}))

	hits, _ = idx.Query(ctx, []float32{1, 0}, 0)
	assert.Empty(t, hits)

	hits, _ = idx.Query(ctx, []float32{1, 0}, 10)
	assert.Len(t, hits, 2)

	_, err = idx.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuery_PropertiesHoldForRandomData(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(11))

	for _, metric := range []domain.DistanceMetric{domain.MetricCosine, domain.MetricEuclidean} {
		idx := New(metric)
		chunks := make([]domain.Chunk, 50)
		for i := range chunks {
			chunks[i] = chunk(fmt.Sprintf("c%d", i), rng.Float32(), rng.Float32(), rng.Float32())
		}
		require.NoError(t, idx.Build(ctx, chunks))

		for k := 0; k < 60; k += 7 {
			hits, err := idx.Query(ctx, []float32{rng.Float32(), rng.Float32(), rng.Float32()}, k)
			require.NoError(t, err)

			assert.LessOrEqual(t, len(hits), k)
			seen := map[string]bool{}
			for i, h := range hits {
				assert.False(t, seen[h.Chunk.ID], "duplicate %s", h.Chunk.ID)
				seen[h.Chunk.ID] = true
				if i > 0 {
					assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
				}
			}
		}
	}
}

func TestBuild_RejectsBadInputAndKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Build(ctx, []domain.Chunk{chunk("a", 1, 0)}))

	assert.ErrorIs(t, idx.Build(ctx, []domain.Chunk{chunk("x", 1, 0), chunk("x", 0, 1)}), domain.ErrInvalidInput)
	assert.ErrorIs(t, idx.Build(ctx, []domain.Chunk{chunk("x", 1, 0), chunk("y", 1)}), domain.ErrInvalidInput)
	assert.ErrorIs(t, idx.Build(ctx, []domain.Chunk{{ID: "z"}}), domain.ErrInvalidInput)

	assert.Equal(t, 1, idx.Len())
}

func TestBuild_ReplacesWholeIndex(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Build(ctx, []domain.Chunk{chunk("old1", 1, 0), chunk("old2", 0, 1)}))
	require.NoError(t, idx.Build(ctx, []domain.Chunk{chunk("new", 1, 1, 1)}))

	assert.Equal(t, 1, idx.Len())
	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(hits))
}

func TestNew_UnknownMetricFallsBack(t *testing.T) {
	assert.Equal(t, domain.MetricCosine, New("dot").Metric())
	assert.Equal(t, 0, Factory(domain.MetricEuclidean)().Len())
}
