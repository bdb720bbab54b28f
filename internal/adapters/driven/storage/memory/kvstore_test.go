package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func TestKeyValueStore_GetPut(t *testing.T) {
	ctx := context.Background()
	s := NewKeyValueStore()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte("vector")
	require.NoError(t, s.Put(ctx, "k", value))
	value[0] = 'X'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("vector"), got)

	got[0] = 'Y'
	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("vector"), again)
}

func TestKeyValueStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewKeyValueStore()

	require.NoError(t, s.Put(ctx, "k", []byte("one")))
	require.NoError(t, s.Put(ctx, "k", []byte("two")))

	got, _, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("two"), got)
}

func TestKeyValueStore_EmptyKey(t *testing.T) {
	assert.ErrorIs(t, NewKeyValueStore().Put(context.Background(), "", nil), domain.ErrInvalidInput)
}

func TestKeyValueStore_DeleteClearStats(t *testing.T) {
	ctx := context.Background()
	s := NewKeyValueStore()
	require.NoError(t, s.Put(ctx, "a", []byte("12")))
	require.NoError(t, s.Put(ctx, "b", []byte("345")))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(5), stats.Bytes)
	assert.Equal(t, "memory", stats.Backend)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	stats, _ = s.Stats(ctx)
	assert.Equal(t, 1, stats.Entries)

	require.NoError(t, s.Clear(ctx))
	stats, _ = s.Stats(ctx)
	assert.Equal(t, 0, stats.Entries)
	require.NoError(t, s.Close())
}
